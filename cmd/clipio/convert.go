package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/blockforge/clipio"
	"github.com/blockforge/clipio/internal/format"
)

var convertCmd = &cobra.Command{
	Use:   "convert IN OUT",
	Short: "Convert a clipboard between formats",
	Long: `Read IN and write it to OUT. The output format follows OUT's extension
unless --to-format is given. Writing a .png renders an isometric preview.

Examples:
  clipio convert castle.schematic castle.fawe
  clipio convert castle.schematic castle.png
  clipio convert build.nbt build --to-format mcedit`,
	Args: cobra.ExactArgs(2),
	RunE: runConvert,
}

var toFormat string

func init() {
	convertCmd.Flags().StringVar(&toFormat, "to-format", "", "output format alias")
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	in, out := args[0], args[1]

	s, err := readSchematic(in)
	if err != nil {
		return err
	}

	f, err := outputFormat(out, toFormat)
	if err != nil {
		return err
	}
	if !f.Capabilities().Has(format.CapWrite) {
		return fmt.Errorf("format %s cannot be written", f.Name())
	}

	path, err := s.SaveFile(out, f)
	if err != nil {
		return err
	}

	var size int64
	if info, err := os.Stat(path); err == nil {
		size = info.Size()
	}
	fmt.Printf("%s %s → %s (%s, %s)\n", okStyle.Render("converted"), in, path, f.Name(), formatBytes(size))
	return nil
}

// readSchematic loads path with --format or the detected format.
func readSchematic(path string) (*clipio.Schematic, error) {
	f, err := resolveFormat(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	s, err := clipio.LoadReader(file, f)
	if err != nil {
		return nil, fmt.Errorf("reading %s as %s: %w", path, f.Name(), err)
	}
	if s.Name == "" {
		s.Name = path
	}
	return s, nil
}
