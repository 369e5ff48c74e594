// Command vidpak-unpack unpacks a Vidpak file back into a raw 16-bit
// little-endian video stream.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/vidpak/vidpak"
	"github.com/vidpak/vidpak/frame"
	"github.com/vidpak/vidpak/internal/rawframe"
)

var (
	numFramesFlag int
	metaFlag      string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "vidpak-unpack INPUT OUTPUT",
	Short: "Unpack raw video data from a Vidpak file",
	Args:  cobra.ExactArgs(2),
	RunE:  runUnpack,
}

func init() {
	rootCmd.Flags().IntVarP(&numFramesFlag, "num-frames", "n", 0, "only unpack the first n frames")
	rootCmd.Flags().StringVar(&metaFlag, "meta", "", "write the input's metadata blob to this path as raw bytes")
}

func runUnpack(cmd *cobra.Command, args []string) error {
	inputPath, outputPath := args[0], args[1]
	if numFramesFlag < 0 {
		return errors.Errorf("number of frames %d must be positive", numFramesFlag)
	}

	reader, err := vidpak.Open(inputPath, false)
	if err != nil {
		return errors.WithStack(err)
	}
	defer reader.Close()

	if metaFlag != "" {
		if err := os.WriteFile(metaFlag, reader.Metadata(), 0o644); err != nil {
			return errors.WithStack(err)
		}
	}

	toStdout := outputPath == "-"
	var out io.Writer
	if toStdout {
		out = os.Stdout
	} else {
		f, err := os.Create(outputPath)
		if err != nil {
			return errors.WithStack(err)
		}
		defer f.Close()
		bw := bufio.NewWriterSize(f, 1<<20)
		defer bw.Flush()
		out = bw
	}

	width, height := reader.Width(), reader.Height()
	if !toStdout {
		fmt.Printf("Frame size: %dx%d\n", width, height)
		fmt.Printf("Tile size: %dx%d\n", reader.TileWidth(), reader.TileHeight())
	}

	f := frame.NewFrame(width, height)
	numFrames := 0
	var unpackTime time.Duration
	for {
		start := time.Now()
		_, _, _, err := reader.ReadFrame(numFrames, f, true)
		unpackTime += time.Since(start)
		if err != nil {
			if errors.Is(err, vidpak.ErrFrameNotPresent) {
				break
			}
			return errors.WithStack(err)
		}

		if err := rawframe.WriteFrame(out, f); err != nil {
			return errors.WithStack(err)
		}
		numFrames++
		if !toStdout {
			fmt.Printf("  Unpacked %d frames...\r", numFrames)
		}
		if numFramesFlag > 0 && numFrames == numFramesFlag {
			break
		}
	}

	if !toStdout {
		fmt.Printf("Finished unpacking %d frames\n", numFrames)
		if numFrames > 0 {
			fmt.Printf("Average unpack time: %.2fms\n", unpackTime.Seconds()*1000/float64(numFrames))
			rawBytes := rawframe.ByteSize(width, height) * numFrames
			if info, err := os.Stat(inputPath); err == nil {
				fmt.Printf("Compression ratio: %.2f%%\n", 100*float64(info.Size())/float64(rawBytes))
			}
		}
	}
	return nil
}
