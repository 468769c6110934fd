package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tactus",
	Short: "Score timeline tool",
	Long:  `Loads, edits and plays back score timelines with exact rational positions.`,
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}
