package main

import (
	"os"

	kubeapiserver "k8s.io/apiserver/pkg/server"

	"github.com/microsoft/dapwriter/internal/dapecho/commands"
	"github.com/microsoft/dapwriter/pkg/logger"
	"github.com/microsoft/dapwriter/pkg/resiliency"
)

const (
	errCommandError = 1
	errPanic        = 3
)

func main() {
	log := logger.New("dapecho").WithName("dapecho")
	defer func() {
		panicErr := resiliency.MakePanicError(recover(), log.Logger)
		if panicErr != nil {
			os.Stderr.WriteString(panicErr.Error() + "\n")
			log.Flush()
			os.Exit(errPanic)
		}
	}()

	ctx := kubeapiserver.SetupSignalContext()

	root := commands.NewRootCommand(log)

	if err := root.ExecuteContext(ctx); err != nil {
		commands.ErrorExit(log, err, errCommandError)
	} else {
		log.Flush()
	}
}
