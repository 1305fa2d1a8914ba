package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	tellus "github.com/tellusgeo/tellus-go"
)

var (
	statsBands  []string
	statsRegion string
	statsScale  float64
)

var statsCmd = &cobra.Command{
	Use:   "stats ASSET",
	Short: "Print per-band summary statistics over a region",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		region, err := parseRegion(statsRegion)
		if err != nil {
			return err
		}
		client, err := newClient()
		if err != nil {
			return err
		}
		img := tellus.NewImage(args[0])
		if len(statsBands) > 0 {
			img = img.Select(statsBands...)
		}

		reducer := tellus.Mean().
			Combine(tellus.StdDev()).
			Combine(tellus.Min()).
			Combine(tellus.Max())
		res, err := client.Compute(cmd.Context(), img.ReduceRegion(reducer, region, statsScale))
		if err != nil {
			return err
		}
		m, err := res.FloatMap()
		if err != nil {
			return err
		}

		// Combined reducer output keys are "<band>_<kind>".
		bands := map[string]bool{}
		for k := range m {
			if i := strings.LastIndex(k, "_"); i > 0 {
				bands[k[:i]] = true
			}
		}
		names := make([]string, 0, len(bands))
		for b := range bands {
			names = append(names, b)
		}
		sort.Strings(names)

		fmt.Printf("%-12s %10s %10s %10s %10s\n", "band", "mean", "stdDev", "min", "max")
		for _, b := range names {
			fmt.Printf("%-12s %10.4f %10.4f %10.4f %10.4f\n",
				b, m[b+"_mean"], m[b+"_stdDev"], m[b+"_min"], m[b+"_max"])
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().StringSliceVar(&statsBands, "bands", nil, "bands to summarize (default all)")
	statsCmd.Flags().StringVar(&statsRegion, "region", "", "region as west,south,east,north (required)")
	statsCmd.Flags().Float64Var(&statsScale, "scale", 30, "reduction scale in meters")
	statsCmd.MarkFlagRequired("region")
}
