package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/shravan/physio/internal/exercise"
	"github.com/spf13/cobra"
)

// exercisesCmd lists the supported exercises.
var exercisesCmd = &cobra.Command{
	Use:   "exercises",
	Short: "List the supported exercises",
	RunE: func(cmd *cobra.Command, args []string) error {
		title := color.New(color.FgCyan, color.Bold).SprintFunc()
		dim := color.New(color.FgHiBlack).SprintFunc()

		out := cmd.OutOrStdout()
		for _, info := range exercise.Catalog() {
			fmt.Fprintf(out, "%s %s\n", title(info.Title), dim("("+string(info.Type)+")"))
			fmt.Fprintf(out, "  %s\n", info.Instructions)
			fmt.Fprintf(out, "  one rep: %s -> %s -> %s\n", info.States[1], info.States[0], info.States[1])
			for _, tip := range info.Tips {
				fmt.Fprintf(out, "  • %s\n", tip)
			}
			fmt.Fprintln(out)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exercisesCmd)
}
