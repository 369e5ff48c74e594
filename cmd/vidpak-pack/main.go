// Command vidpak-pack packs a raw 16-bit little-endian video stream into a
// Vidpak file.
package main

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/vidpak/vidpak"
	"github.com/vidpak/vidpak/frame"
	"github.com/vidpak/vidpak/internal/rawframe"
)

// bitsPerSample is fixed for now; the raw ingestion path only ever sees
// 12-bit scientific sensor data.
const bitsPerSample = 12

var (
	sizeFlag      string
	tileSizeFlag  string
	numFramesFlag int
	framerateFlag float64
	noFramePos    bool
	verify        bool
	metaFlag      string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "vidpak-pack INPUT OUTPUT",
	Short: "Pack raw video data into a Vidpak file",
	Args:  cobra.ExactArgs(2),
	RunE:  runPack,
}

func init() {
	rootCmd.Flags().StringVarP(&sizeFlag, "size", "s", "", "width and height (as in WxH) of each frame")
	rootCmd.Flags().StringVarP(&tileSizeFlag, "tile-size", "t", "", "width and height (as in WxH) of each packed tile")
	rootCmd.Flags().IntVarP(&numFramesFlag, "num-frames", "n", 0, "only pack the first n frames")
	rootCmd.Flags().Float64VarP(&framerateFlag, "framerate", "f", 30, "nominal framerate used for determining frame timestamps")
	rootCmd.Flags().BoolVar(&noFramePos, "no-frame-pos", false, "don't write the frame position table")
	rootCmd.Flags().BoolVar(&verify, "verify", false, "unpack each frame after writing and verify it matches the original")
	rootCmd.Flags().StringVar(&metaFlag, "meta", "", "path to a file of raw bytes to store as the output's metadata blob")
	rootCmd.MarkFlagRequired("size")
}

func parseSize(s string) (width, height int, err error) {
	parts := strings.SplitN(s, "x", 2)
	if len(parts) != 2 {
		return 0, 0, errors.Errorf("size %q must be in WxH form", s)
	}
	w, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, errors.Wrapf(err, "size %q", s)
	}
	h, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, errors.Wrapf(err, "size %q", s)
	}
	return w, h, nil
}

func runPack(cmd *cobra.Command, args []string) error {
	inputPath, outputPath := args[0], args[1]

	width, height, err := parseSize(sizeFlag)
	if err != nil {
		return err
	}
	tileWidth, tileHeight := width, height
	if tileSizeFlag != "" {
		tileWidth, tileHeight, err = parseSize(tileSizeFlag)
		if err != nil {
			return err
		}
	}
	if framerateFlag <= 0 {
		return errors.Errorf("framerate %v must be positive", framerateFlag)
	}
	if numFramesFlag < 0 {
		return errors.Errorf("number of frames %d must be positive", numFramesFlag)
	}

	var metadata []byte
	if metaFlag != "" {
		metadata, err = os.ReadFile(metaFlag)
		if err != nil {
			return errors.WithStack(err)
		}
	}

	var in io.Reader
	if inputPath == "-" {
		in = os.Stdin
	} else {
		f, err := os.Open(inputPath)
		if err != nil {
			return errors.WithStack(err)
		}
		defer f.Close()
		in = bufio.NewReaderSize(f, 1<<20)
	}

	writer, err := vidpak.Create(outputPath, width, height, bitsPerSample, tileWidth, tileHeight, metadata)
	if err != nil {
		return errors.WithStack(err)
	}

	var verifyReader *vidpak.Reader
	if verify {
		verifyReader, err = vidpak.Open(outputPath, true)
		if err != nil {
			return errors.WithStack(err)
		}
	}

	src := frame.NewFrame(width, height)
	var got *frame.Frame
	if verify {
		got = frame.NewFrame(width, height)
	}

	numFrames := 0
	verifyOK := true
	var packTime time.Duration
	for {
		if err := rawframe.ReadFrame(in, src); err != nil {
			if err == io.EOF {
				break
			}
			writer.Close(!noFramePos)
			return errors.WithStack(err)
		}

		timestamp := uint64(math.Round(float64(numFrames) * 1e6 / framerateFlag))
		start := time.Now()
		if err := writer.WriteFrame(timestamp, src, nil); err != nil {
			return errors.WithStack(err)
		}
		packTime += time.Since(start)

		if verify && verifyOK {
			for {
				_, _, _, err := verifyReader.ReadFrame(numFrames, got, false)
				if err == nil {
					break
				}
				if errors.Is(err, vidpak.ErrFrameNotPresent) {
					continue
				}
				return errors.WithStack(err)
			}
			if !framesEqual(src, got) {
				verifyOK = false
			}
		}

		numFrames++
		fmt.Printf("  Packed %d frames...\r", numFrames)
		if numFramesFlag > 0 && numFrames == numFramesFlag {
			break
		}
	}

	if err := writer.Close(!noFramePos); err != nil {
		return errors.WithStack(err)
	}
	if verifyReader != nil {
		if err := verifyReader.Close(); err != nil {
			log.Printf("closing verification reader: %v", err)
		}
	}

	fmt.Printf("Finished packing %d frames\n", numFrames)
	if numFrames > 0 {
		fmt.Printf("Average pack time: %.2fms\n", packTime.Seconds()*1000/float64(numFrames))
		rawBytes := rawframe.ByteSize(width, height) * numFrames
		fmt.Printf("Compression ratio: %.2f%%\n", 100*float64(writer.FileSize())/float64(rawBytes))
		if verify {
			if verifyOK {
				fmt.Println("Verify result: success")
			} else {
				fmt.Println("Verify result: FAILURE")
				os.Exit(1)
			}
		}
	}
	return nil
}

func framesEqual(a, b *frame.Frame) bool {
	if a.Width != b.Width || a.Height != b.Height {
		return false
	}
	for i, v := range a.Pix {
		if b.Pix[i] != v {
			return false
		}
	}
	return true
}
