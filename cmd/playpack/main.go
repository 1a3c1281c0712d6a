// Command playpack is the developer-facing CLI exercising the core
// package-manager and script-engine library: one subcommand per
// component (storage, resolver, packstore, generations, script engine),
// mirroring the teacher's cmd/canopy layout.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// errorHandled is set by a command's RunE when it has already printed a
// diagnostic, so main() doesn't double-print.
var errorHandled bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "playpack",
	Short:         "Content-addressed package manager for game integrations",
	Long:          "playpack resolves, stores, and evaluates versioned packages of sandboxed Risor scripts against a content-addressed store.",
	SilenceErrors: true,
	SilenceUsage:  true,
	// No Run — prints help by default.
}

func init() {
	rootCmd.AddCommand(storageCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(storeCmd)
	rootCmd.AddCommand(generationsCmd)
	rootCmd.AddCommand(engineCmd)
	rootCmd.AddCommand(registryCmd)
}
