package main

import (
	"cmp"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/blockforge/clipio/internal/format/fawefmt"
	"github.com/blockforge/clipio/internal/summary"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect FILE",
	Short: "Show dimensions and block statistics of a clipboard",
	Long: `Decode FILE and summarize it: dimensions, origin, block histogram and
the Shannon entropy of its block ids.

With --encoding json or cbor the summary is written to stdout in the form
published next to uploads.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

var (
	inspectEncoding string
	inspectCreator  string
	inspectTop      int
)

func init() {
	inspectCmd.Flags().StringVar(&inspectEncoding, "encoding", "text", "output encoding: text, json, cbor")
	inspectCmd.Flags().StringVar(&inspectCreator, "creator", "", "creator recorded in the summary")
	inspectCmd.Flags().IntVar(&inspectTop, "top", 5, "number of most common blocks to show")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	path := args[0]
	s, err := readSchematic(path)
	if err != nil {
		return err
	}
	sum := summary.Build(s.Volume, inspectCreator)

	if inspectEncoding != "text" {
		data, err := sum.Encode(summary.Encoding(inspectEncoding))
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	}

	lines := []string{
		field("size", s.Dimensions),
		field("origin", s.Origin),
		field("cells", sum.Cells()),
		field("non-air", sum.NonAir()),
		field("entropy", fmt.Sprintf("%.3f bits", sum.Entropy)),
	}
	if ra, ok := randomAccess(path); ok {
		lines = append(lines, field("access", ra))
	}

	ids := make([]int, 0, len(sum.Blocks))
	for id := range sum.Blocks {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b int) int {
		return cmp.Or(cmp.Compare(sum.Blocks[b], sum.Blocks[a]), cmp.Compare(a, b))
	})
	for i, id := range ids {
		if i == inspectTop {
			lines = append(lines, mutedStyle.Render(fmt.Sprintf("… %d more", len(ids)-i)))
			break
		}
		lines = append(lines, field(fmt.Sprintf("id %d", id), sum.Blocks[id]))
	}

	fmt.Println(panel(s.Name, lines...))
	return nil
}

// randomAccess reports whether path is an uncompressed raster FAWE file.
func randomAccess(path string) (string, bool) {
	f, err := resolveFormat(path)
	if err != nil || f.Name() != fawefmt.New().Name() {
		return "", false
	}
	file, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer file.Close()

	if _, err := fawefmt.OpenRandomAccess(file); err != nil {
		return "sequential", true
	}
	return "random", true
}
