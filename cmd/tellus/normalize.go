package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	tellus "github.com/tellusgeo/tellus-go"
	"github.com/tellusgeo/tellus-go/normalize"
)

var (
	normBands   []string
	normRegion  string
	normScale   float64
	normMaxIter int
	normTol     float64
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize REFERENCE TARGET",
	Short: "Radiometrically normalize a target scene to a reference",
	Long: `normalize runs the iteratively reweighted MAD transform between two
co-registered scenes, then fits per-band orthogonal regressions over the
pixels MAD flags as invariant. It prints the canonical correlations of
each round and the final gain/offset per band.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		region, err := parseRegion(normRegion)
		if err != nil {
			return err
		}
		client, err := newClient()
		if err != nil {
			return err
		}
		reference := tellus.NewImage(args[0])
		target := tellus.NewImage(args[1])
		ctx := cmd.Context()

		res, err := normalize.MAD(ctx, client, reference, target, normBands, region, normalize.Options{
			MaxIterations: normMaxIter,
			Tolerance:     normTol,
			Scale:         normScale,
		})
		if err != nil {
			return err
		}
		for i, rho := range res.History {
			fmt.Printf("iteration %2d: correlations %v\n", i+1, rho)
		}
		if !res.Converged {
			fmt.Printf("did not converge after %d iterations\n", res.Iterations)
		}
		logger.Debug("mad finished",
			zap.Int("iterations", res.Iterations),
			zap.Bool("converged", res.Converged))

		norm, err := normalize.Normalize(ctx, client, target, reference, normBands, res.Weight, region, normScale)
		if err != nil {
			return err
		}
		fmt.Printf("\n%-12s %10s %10s\n", "band", "gain", "offset")
		for i, b := range norm.Bands {
			fmt.Printf("%-12s %10.4f %10.4f\n", b, norm.Gains[i], norm.Offsets[i])
		}
		return nil
	},
}

func init() {
	normalizeCmd.Flags().StringSliceVar(&normBands, "bands", nil, "bands to normalize (required)")
	normalizeCmd.Flags().StringVar(&normRegion, "region", "", "region as west,south,east,north (required)")
	normalizeCmd.Flags().Float64Var(&normScale, "scale", 30, "reduction scale in meters")
	normalizeCmd.Flags().IntVar(&normMaxIter, "max-iterations", 30, "iteration cap")
	normalizeCmd.Flags().Float64Var(&normTol, "tolerance", 1e-4, "convergence threshold on correlations")
	normalizeCmd.MarkFlagRequired("bands")
	normalizeCmd.MarkFlagRequired("region")
}
