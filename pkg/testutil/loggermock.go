package testutil

import (
	"github.com/go-logr/logr"
	"github.com/stretchr/testify/mock"
)

// MockLoggerSink is a logr.LogSink that records calls with testify/mock.
type MockLoggerSink struct {
	mock.Mock
}

// NewMockLoggerSink returns a sink that accepts logger construction and info messages at any level.
// Tests add expectations for Error calls they want to verify.
func NewMockLoggerSink() *MockLoggerSink {
	sink := &MockLoggerSink{}
	sink.On("Init", mock.Anything).Maybe()
	sink.On("Enabled", mock.Anything).Return(true).Maybe()
	sink.On("Info", mock.Anything, mock.Anything, mock.Anything).Maybe()
	sink.On("WithValues", mock.Anything).Return(sink).Maybe()
	sink.On("WithName", mock.Anything).Return(sink).Maybe()
	return sink
}

func (m *MockLoggerSink) Enabled(level int) bool {
	args := m.Called(level)
	return args.Bool(0)
}

func (m *MockLoggerSink) Error(err error, msg string, keysAndValues ...interface{}) {
	m.Called(err, msg, keysAndValues)
}

func (m *MockLoggerSink) Info(level int, msg string, keysAndValues ...interface{}) {
	m.Called(level, msg, keysAndValues)
}

func (m *MockLoggerSink) Init(info logr.RuntimeInfo) {
	m.Called(info)
}

func (m *MockLoggerSink) WithName(name string) logr.LogSink {
	args := m.Called(name)
	return args.Get(0).(logr.LogSink)
}

func (m *MockLoggerSink) WithValues(keysAndValues ...interface{}) logr.LogSink {
	args := m.Called(keysAndValues)
	return args.Get(0).(logr.LogSink)
}

var _ logr.LogSink = (*MockLoggerSink)(nil)
