package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blockforge/clipio/internal/format/builtin"
)

var detectCmd = &cobra.Command{
	Use:   "detect FILE...",
	Short: "Detect the format of clipboard files",
	Long: `Detect the format of each file. Formats with a header signature are
asked first, so a schematic saved with a .nbt extension is still reported
as a schematic.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)
}

func runDetect(cmd *cobra.Command, args []string) error {
	reg := builtin.Default()
	var unknown int
	for _, path := range args {
		f, ok := reg.Detect(path)
		if !ok {
			unknown++
			fmt.Printf("%s  %s\n", path, warnStyle.Render("unknown"))
			continue
		}
		fmt.Printf("%s  %s\n", path, okStyle.Render(f.Name()))
	}
	if unknown > 0 {
		return fmt.Errorf("%d of %d files not recognized", unknown, len(args))
	}
	return nil
}
