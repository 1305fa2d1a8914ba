package main

import (
	"bytes"
	"fmt"
	"image/png"
	"os"

	"github.com/cenkalti/dominantcolor"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	tellus "github.com/tellusgeo/tellus-go"
)

var (
	thumbOut      string
	thumbBands    []string
	thumbMin      float64
	thumbMax      float64
	thumbPalette  []string
	thumbSize     int
	thumbDominant bool
)

var thumbCmd = &cobra.Command{
	Use:   "thumb ASSET",
	Short: "Render a quicklook of a scene to a PNG file",
	Long: `thumb renders a scene server-side and writes the PNG to a file.
Pick three bands for RGB or one band with an optional palette ramp.
With --dominant the most prominent color of the rendering is reported,
a quick way to sanity-check a composite.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		img := tellus.NewImage(args[0])
		thumb, err := client.Thumbnail(cmd.Context(), img, tellus.ThumbnailOptions{
			Dimensions: thumbSize,
			Bands:      thumbBands,
			Min:        thumbMin,
			Max:        thumbMax,
			Palette:    thumbPalette,
		})
		if err != nil {
			return err
		}
		logger.Debug("thumbnail rendered",
			zap.Int("width", thumb.Width),
			zap.Int("height", thumb.Height),
			zap.Int("bytes", len(thumb.Data)))

		if err := os.WriteFile(thumbOut, thumb.Data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", thumbOut, err)
		}
		fmt.Printf("wrote %s (%dx%d)\n", thumbOut, thumb.Width, thumb.Height)

		if thumbDominant {
			decoded, err := png.Decode(bytes.NewReader(thumb.Data))
			if err != nil {
				return fmt.Errorf("decoding thumbnail: %w", err)
			}
			c := dominantcolor.Find(decoded)
			fmt.Printf("dominant color: %s\n", dominantcolor.Hex(c))
		}
		return nil
	},
}

func init() {
	thumbCmd.Flags().StringVarP(&thumbOut, "out", "o", "thumb.png", "output file")
	thumbCmd.Flags().StringSliceVar(&thumbBands, "bands", nil, "bands to render (1 or 3)")
	thumbCmd.Flags().Float64Var(&thumbMin, "min", 0, "display range minimum")
	thumbCmd.Flags().Float64Var(&thumbMax, "max", 0, "display range maximum (0 = auto)")
	thumbCmd.Flags().StringSliceVar(&thumbPalette, "palette", nil, "palette stops as #RRGGBB, single band only")
	thumbCmd.Flags().IntVar(&thumbSize, "size", 512, "longer edge of the output in pixels")
	thumbCmd.Flags().BoolVar(&thumbDominant, "dominant", false, "report the dominant color of the rendering")
}
