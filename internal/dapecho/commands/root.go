/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/microsoft/dapwriter/pkg/logger"
)

func NewRootCommand(log *logger.Logger) *cobra.Command {
	rootCmd := &cobra.Command{
		SilenceErrors: true,
		Use:           "dapecho",
		Short:         "Runs a minimal debug adapter",
		Long: `Runs a minimal debug adapter.

	The adapter speaks the Debug Adapter Protocol over standard input/output or a TCP connection.
	It pretends to run the launched program and reports its output, which makes it useful for testing DAP clients.`,
		SilenceUsage:     true,
		PersistentPreRun: logVersion(log.Logger, "Starting dapecho..."),
	}

	rootCmd.CompletionOptions.HiddenDefaultCmd = true

	log.AddLevelFlag(rootCmd.PersistentFlags())

	rootCmd.AddCommand(NewVersionCommand(log.Logger))
	rootCmd.AddCommand(NewServeCommand(log.Logger))

	return rootCmd
}

// ErrorExit logs the error, flushes the log and exits the process with the given code.
func ErrorExit(log *logger.Logger, err error, code int) {
	log.Error(err, "dapecho failed")
	os.Stderr.WriteString(err.Error() + "\n")
	log.Flush()
	os.Exit(code)
}
