package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	tellus "github.com/tellusgeo/tellus-go"
	"github.com/tellusgeo/tellus-go/spectral"
)

var (
	indexNames  []string
	indexSensor string
	indexRegion string
	indexScale  float64
)

var indexCmd = &cobra.Command{
	Use:   "index ASSET",
	Short: "Compute regional means of spectral indices for a scene",
	Long: `index loads a scene, computes one or more spectral indices and
prints the mean of each over the region. Indices are computed
concurrently; each one is a single platform round trip.

Known indices: ` + strings.Join(spectral.Indices(), ", ") + `.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sensor, err := spectral.SensorByName(indexSensor)
		if err != nil {
			return err
		}
		region, err := parseRegion(indexRegion)
		if err != nil {
			return err
		}
		client, err := newClient()
		if err != nil {
			return err
		}
		img := tellus.NewImage(args[0])

		var mu sync.Mutex
		results := make(map[string]float64, len(indexNames))
		g, ctx := errgroup.WithContext(cmd.Context())
		for _, name := range indexNames {
			name := name
			g.Go(func() error {
				idx, err := spectral.Compute(img, sensor, name)
				if err != nil {
					return err
				}
				res, err := client.Compute(ctx, idx.ReduceRegion(tellus.Mean(), region, indexScale))
				if err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
				m, err := res.FloatMap()
				if err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
				var v float64
				for _, val := range m {
					v = val
				}
				mu.Lock()
				results[name] = v
				mu.Unlock()
				logger.Debug("index computed", zap.String("index", name), zap.Float64("mean", v))
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		names := make([]string, 0, len(results))
		for name := range results {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("%-8s %9.4f\n", strings.ToUpper(name), results[name])
		}
		return nil
	},
}

func init() {
	indexCmd.Flags().StringSliceVar(&indexNames, "indices", []string{"ndvi"}, "comma-separated index names")
	indexCmd.Flags().StringVar(&indexSensor, "sensor", "landsat8", "sensor band mapping")
	indexCmd.Flags().StringVar(&indexRegion, "region", "", "region as west,south,east,north (required)")
	indexCmd.Flags().Float64Var(&indexScale, "scale", 30, "reduction scale in meters")
	indexCmd.MarkFlagRequired("region")
}

// parseRegion parses "west,south,east,north" into a rectangle.
func parseRegion(s string) (tellus.Geometry, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return tellus.Geometry{}, fmt.Errorf("region must be west,south,east,north, got %q", s)
	}
	var edges [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return tellus.Geometry{}, fmt.Errorf("bad region coordinate %q: %w", p, err)
		}
		edges[i] = v
	}
	return tellus.Rectangle(edges[0], edges[1], edges[2], edges[3]), nil
}
