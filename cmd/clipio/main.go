// Package main provides the clipio CLI tool for inspecting, converting,
// loading and publishing voxel clipboard files.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
