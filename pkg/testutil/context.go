package testutil

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"testing"
	"time"
)

// GetTestContext returns a context that expires at the earlier of the test deadline
// and now + testTimeout. A zero testTimeout means "test deadline only".
// Setting TEST_CONTEXT_TIMEOUT (in minutes) overrides both, which is handy under a debugger.
func GetTestContext(t *testing.T, testTimeout time.Duration) (context.Context, context.CancelFunc) {
	if timeoutStr, found := os.LookupEnv("TEST_CONTEXT_TIMEOUT"); found {
		timeout, err := strconv.ParseUint(timeoutStr, 10, 16)
		if err != nil {
			panic(fmt.Sprintf("Context timeout value '%s' is invalid: %s", timeoutStr, err.Error()))
		}
		return context.WithTimeout(context.Background(), time.Duration(timeout)*time.Minute)
	}

	deadline, haveDeadline := t.Deadline()
	if testTimeout != 0 {
		testDeadline := time.Now().Add(testTimeout)
		if !haveDeadline || testDeadline.Before(deadline) {
			deadline = testDeadline
			haveDeadline = true
		}
	}

	if !haveDeadline {
		return context.WithCancel(context.Background())
	}
	return context.WithDeadline(context.Background(), deadline)
}
