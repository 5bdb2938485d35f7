// Package main provides the pacerd daemon, which runs a pacer device and
// exposes its configuration channel and monitoring server.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pacerd",
	Short: "Pacerd runs a virtual jittered-interrupt peripheral.",
	Long: `Pacerd hosts a pacer device: a virtual peripheral that raises an ` +
		`interrupt at a jittered, runtime-configurable interval and waits for ` +
		`each one to be acknowledged. The interval can be changed at runtime ` +
		`through a TCP configuration channel, and the device's state can be ` +
		`inspected through an HTTP monitoring server.`,
}

func main() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
