package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "physio-replay",
	Short:        "Replay exercise recordings through the rep counter",
	SilenceUsage: true,
}
