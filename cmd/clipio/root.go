package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/blockforge/clipio/internal/config"
	"github.com/blockforge/clipio/internal/format"
	"github.com/blockforge/clipio/internal/format/builtin"
)

var (
	// Global flags.
	configPath string
	saveDir    string
	formatName string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "clipio",
	Short: "Read, write and share voxel clipboard files",
	Long: `Clipio reads and writes voxel clipboards ("schematics") in the
legacy schematic, structure block and FAWE formats, and renders them to PNG.

Examples:
  # List the known formats
  clipio formats

  # Convert a schematic to the FAWE format
  clipio convert castle.schematic castle.fawe

  # Load everything a name resolves to in the save directory
  clipio load castle

  # Publish a clipboard to a bucket
  clipio publish castle.schematic --to gs://my-bucket/shared`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default $"+config.EnvVar+")")
	rootCmd.PersistentFlags().StringVarP(&saveDir, "save-dir", "d", "", "directory inputs are resolved against")
	rootCmd.PersistentFlags().StringVarP(&formatName, "format", "f", "", "format alias, overriding detection")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
}

// newLogger returns a development logger with --verbose, else a
// production logger at warn level.
func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if saveDir != "" {
		cfg.SaveDir = saveDir
	}
	if formatName != "" {
		cfg.DefaultFormat = formatName
	}
	return cfg, nil
}

// resolveFormat returns the --format format, or detects one from path.
func resolveFormat(path string) (format.Format, error) {
	reg := builtin.Default()
	if formatName != "" {
		f, ok := reg.Lookup(formatName)
		if !ok {
			return nil, fmt.Errorf("unknown format %q", formatName)
		}
		return f, nil
	}
	if f, ok := reg.Detect(path); ok {
		return f, nil
	}
	return nil, fmt.Errorf("cannot detect the format of %s; pass --format", path)
}

// outputFormat picks the format for an output path from its extension.
func outputFormat(path, override string) (format.Format, error) {
	reg := builtin.Default()
	if override != "" {
		if f, ok := reg.Lookup(override); ok {
			return f, nil
		}
		return nil, fmt.Errorf("unknown format %q", override)
	}
	ext := path
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		ext = path[i+1:]
	}
	if f, ok := reg.ByExtension(ext); ok {
		return f, nil
	}
	return nil, fmt.Errorf("no format writes %q files; pass --to-format", ext)
}
