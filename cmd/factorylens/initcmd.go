package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"factorylens/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file to .factorylens/config.json",
	Args:  cobra.NoArgs,
	Run:   runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) {
	cfg := config.DefaultConfig()
	if err := cfg.Save("."); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing config: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Wrote .factorylens/config.json")
}
