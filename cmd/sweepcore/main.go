// Command sweepcore materializes sampling campaigns from a YAML configuration
// file. Scoring functions live outside this binary (the simulator integration
// drives them through the library), so the CLI covers the planning half:
// parsing variations, drawing sample points, and persisting identity tuples.
package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sweepcore/internal/campaign"
	"sweepcore/internal/infra/identity/memory"
	"sweepcore/internal/infra/identity/sqlite"
	"sweepcore/internal/sampling"
	"sweepcore/pkg/domain"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sweepcore",
		Short:         "Materialize simulation parameter sweeps",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newPlanCmd())
	return root
}

type planFlags struct {
	configPath string
	dbPath     string
	method     string
	samples    int
	seed       uint64
	verbose    bool
}

func newPlanCmd() *cobra.Command {
	var flags planFlags
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Draw sample points and materialize their identity tuples",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd.Context(), cmd, flags)
		},
	}
	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "campaign.yaml", "campaign configuration file")
	cmd.Flags().StringVar(&flags.dbPath, "db", "", "sqlite database path (empty keeps identities in memory)")
	cmd.Flags().StringVarP(&flags.method, "method", "m", string(sampling.MethodGrid), "sampling method: grid, lhs, sobol, or rbd")
	cmd.Flags().IntVarP(&flags.samples, "samples", "n", 0, "number of sample points (ignored for grid)")
	cmd.Flags().Uint64Var(&flags.seed, "seed", 0, "random seed (0 uses a fresh source)")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging")
	return cmd
}

func runPlan(ctx context.Context, cmd *cobra.Command, flags planFlags) error {
	log, err := buildLogger(flags.verbose)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	cfg, err := campaign.LoadConfig(flags.configPath)
	if err != nil {
		return err
	}
	pv, err := cfg.ParseVariations()
	if err != nil {
		return err
	}
	defaults, err := cfg.BuildDefaults()
	if err != nil {
		return err
	}

	var store domain.IdentityStore
	if flags.dbPath == "" {
		store = memory.NewStore()
	} else {
		s, err := sqlite.NewStore(flags.dbPath)
		if err != nil {
			return fmt.Errorf("open identity database: %w", err)
		}
		defer func() { _ = s.Close() }()
		store = s
	}

	opts := []campaign.Option{campaign.WithLogger(log)}
	if flags.seed != 0 {
		opts = append(opts, campaign.WithRand(rand.New(rand.NewPCG(flags.seed, flags.seed^0x9e3779b97f4a7c15))))
	}
	runner := campaign.NewRunner(store, defaults, opts...)

	res, err := runner.AddVariations(ctx, campaign.AddRequest{
		Method:     sampling.Method(flags.method),
		Folder:     cfg.Folder,
		Variations: pv,
		Samples:    flags.samples,
	})
	if err != nil {
		return err
	}

	log.Info("campaign materialized",
		zap.String("folder", cfg.Folder),
		zap.String("method", flags.method),
		zap.Int("points", len(res.IDs)))
	out := cmd.OutOrStdout()
	for i, ids := range res.IDs {
		fmt.Fprintf(out, "point %d:", i)
		for _, loc := range domain.Locations() {
			if id, ok := ids[loc]; ok {
				fmt.Fprintf(out, " %s=%d", loc, id)
			}
		}
		fmt.Fprintln(out)
	}
	return nil
}

func buildLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	}
	return cfg.Build()
}
