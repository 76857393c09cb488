package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

var clearCmd = &cobra.Command{
	Use:   "clear <path>",
	Short: "Clear an indexed project: clear_index of spec §6",
	Args:  cobra.ExactArgs(1),
	RunE:  runClear,
}

func init() {
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, args []string) error {
	root, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}

	pl, err := buildPipeline(configPath(), rootOverrides())
	if err != nil {
		return err
	}
	defer pl.Close()

	if err := pl.Coordinator.ClearIndex(context.Background(), root); err != nil {
		fmt.Printf("failed to clear %s: %v\n", root, err)
		return err
	}
	fmt.Printf("cleared index for %s\n", root)
	return nil
}
