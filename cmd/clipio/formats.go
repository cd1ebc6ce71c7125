package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blockforge/clipio/internal/format/builtin"
)

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List the registered clipboard formats",
	Args:  cobra.NoArgs,
	RunE:  runFormats,
}

func init() {
	rootCmd.AddCommand(formatsCmd)
}

func runFormats(cmd *cobra.Command, args []string) error {
	for _, f := range builtin.Default().Formats() {
		fmt.Println(panel(f.Name(),
			field("aliases", strings.Join(f.Aliases(), ", ")),
			field("extension", "."+f.Extension()),
			field("supports", f.Capabilities()),
		))
	}
	return nil
}
