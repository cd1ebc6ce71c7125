package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blockforge/clipio/internal/format/builtin"
	"github.com/blockforge/clipio/internal/stats/logger"
	"github.com/blockforge/clipio/internal/summary"
	"github.com/blockforge/clipio/internal/upload"
)

var publishCmd = &cobra.Command{
	Use:   "publish FILE",
	Short: "Upload a clipboard and its summary to object storage",
	Long: `Upload FILE under a content-addressed key in the uploads/ directory of
the target bucket, with its summary stored alongside. The printed id can be
loaded back with "url:<id>" when the bucket backs the web host.

Examples:
  clipio publish castle.schematic --to gs://my-bucket/shared
  clipio publish castle.schematic --to s3://my-bucket --as fawe`,
	Args: cobra.ExactArgs(1),
	RunE: runPublish,
}

var (
	publishTo       string
	publishAs       string
	publishCreator  string
	publishEncoding string
)

func init() {
	publishCmd.Flags().StringVar(&publishTo, "to", "", "destination (gs://bucket/prefix or s3://bucket/prefix)")
	publishCmd.Flags().StringVar(&publishAs, "as", "", "format to publish in (default: the input format)")
	publishCmd.Flags().StringVar(&publishCreator, "creator", "", "creator recorded in the summary")
	publishCmd.Flags().StringVar(&publishEncoding, "summary", "json", "summary encoding: json, cbor")
	publishCmd.MarkFlagRequired("to")
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	f, err := resolveFormat(args[0])
	if err != nil {
		return err
	}
	s, err := readSchematic(args[0])
	if err != nil {
		return err
	}
	if publishAs != "" {
		var ok bool
		if f, ok = builtin.Default().Lookup(publishAs); !ok {
			return fmt.Errorf("unknown format %q", publishAs)
		}
	}

	up, closeUp, err := openUploader(ctx, publishTo)
	if err != nil {
		return err
	}
	defer closeUp()

	res, err := upload.Publish(ctx, up, f, s.Volume,
		upload.WithCreator(publishCreator),
		upload.WithSummaryEncoding(summary.Encoding(publishEncoding)),
		upload.WithLogger(log),
		upload.WithStats(logger.New(log)),
	)
	if err != nil {
		return err
	}

	fmt.Println(panel("published",
		field("id", res.ID),
		field("url", res.URL),
		field("summary", res.SummaryKey),
		field("load with", "url:"+res.ID),
	))
	return nil
}

func openUploader(ctx context.Context, dest string) (upload.Uploader, func() error, error) {
	switch {
	case strings.HasPrefix(dest, "gs://"):
		u, err := upload.NewGCS(ctx, dest)
		if err != nil {
			return nil, nil, err
		}
		return u, u.Close, nil
	case strings.HasPrefix(dest, "s3://"):
		u, err := upload.NewS3(ctx, dest)
		if err != nil {
			return nil, nil, err
		}
		return u, func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported destination %q", dest)
	}
}
