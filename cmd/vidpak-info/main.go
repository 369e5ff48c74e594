// Command vidpak-info prints the header and frame count of a Vidpak file.
package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/vidpak/vidpak"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "vidpak-info FILE...",
	Short: "Print the header and frame count of one or more Vidpak files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
	var firstErr error
	for _, path := range args {
		if err := inspect(path); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
	}
	if firstErr != nil {
		return errors.New("one or more files could not be inspected")
	}
	return nil
}

func inspect(path string) error {
	r, err := vidpak.Open(path, false)
	if err != nil {
		return err
	}
	defer r.Close()

	fmt.Println("path:", path)
	fmt.Printf("  frame size:  %dx%d\n", r.Width(), r.Height())
	fmt.Printf("  tile size:   %dx%d\n", r.TileWidth(), r.TileHeight())
	fmt.Printf("  metadata:    %d bytes\n", len(r.Metadata()))

	n, err := r.CountFrames(nil)
	if err != nil {
		return err
	}
	if n == nil {
		fmt.Println("  frame count: unknown")
	} else {
		fmt.Println("  frame count:", *n)
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	fmt.Println("  file size:  ", info.Size(), "bytes")
	return nil
}
