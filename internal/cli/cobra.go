package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/spf13/cobra"

	"huntmover/internal/coordinator"
	"huntmover/internal/huntconfig"
	"huntmover/internal/loader"
	"huntmover/internal/resultserver"
	"huntmover/internal/runpipeline"
	"huntmover/internal/scheduler"
)

// NewRootCmd builds the huntmover command tree: run, simulate, config
// and version, the subcommands a sweep-run domain actually needs.
func NewRootCmd(root *Root) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "huntmover",
		Short: "Synthetic-tracking moving-object detection pipeline",
	}
	cmd.AddCommand(
		newRunCmd(root),
		newSimulateCmd(root),
		newConfigCmd(root),
		newVersionCmd(),
	)
	return cmd
}

func newRunCmd(root *Root) *cobra.Command {
	var groupDirs []string
	var pixelScale float64
	var serve bool
	var addr string

	cmd := &cobra.Command{
		Use:   "run <root-dir>",
		Short: "Run a sweep over three FITS exposure-group directories",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(groupDirs) != 3 {
				return fmt.Errorf("--groups must name exactly three subdirectories, got %d", len(groupDirs))
			}
			src := loader.NewDirSource(args[0], [3]string{groupDirs[0], groupDirs[1], groupDirs[2]}, pixelScale)
			return root.runFromSource(cmd.Context(), cmd.OutOrStdout(), src, serve, addr)
		},
	}
	cmd.Flags().StringSliceVar(&groupDirs, "groups", []string{"g0", "g1", "g2"}, "three group subdirectory names, in temporal order")
	cmd.Flags().Float64Var(&pixelScale, "pixel-scale", 0, "arcsec/pixel fallback when a FITS frame carries no WCS scale")
	cmd.Flags().BoolVar(&serve, "serve", false, "expose the run-control HTTP/WS surface while the run executes")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address for --serve (defaults to the configured server.listen_addr)")
	return cmd
}

func newSimulateCmd(root *Root) *cobra.Command {
	params := loader.DefaultSyntheticParams()
	var motionArcsecPerMin float64
	var paDeg float64
	var serve bool
	var addr string

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a sweep over a synthetic moving-blob dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			if motionArcsecPerMin != 0 {
				params.MotionArcsecPerMin = motionArcsecPerMin
			}
			if paDeg != 0 {
				params.PARadians = paDeg * math.Pi / 180
			}
			src := loader.NewSyntheticSource(params)
			return root.runFromSource(cmd.Context(), cmd.OutOrStdout(), src, serve, addr)
		},
	}
	cmd.Flags().Float64Var(&motionArcsecPerMin, "motion", 0, "ground-truth motion in arcsec/min (default from the built-in params)")
	cmd.Flags().Float64Var(&paDeg, "pa", 0, "ground-truth position angle in degrees, eastward from north")
	cmd.Flags().IntVar(&params.FramesPerGroup, "frames-per-group", params.FramesPerGroup, "exposures per group")
	cmd.Flags().Int64Var(&params.Seed, "seed", params.Seed, "PRNG seed for pixel noise")
	cmd.Flags().BoolVar(&serve, "serve", false, "expose the run-control HTTP/WS surface while the run executes")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address for --serve (defaults to the configured server.listen_addr)")
	return cmd
}

// runFromSource loads groups from src, submits a job to the shared
// pipeline, optionally fronting it with a resultserver, and prints the
// movers the run produces to out.
func (r *Root) runFromSource(ctx context.Context, out io.Writer, src loader.Source, serve bool, addr string) error {
	rawGroups, pixelScale, err := src.LoadGroups(ctx)
	if err != nil {
		return fmt.Errorf("loading groups: %w", err)
	}
	groups, err := loader.Adopt(rawGroups, pixelScale)
	if err != nil {
		return fmt.Errorf("adopting groups: %w", err)
	}

	job := runpipeline.Job{
		ID:     newID("run"),
		Config: coordinatorConfig(r.cfg, pixelScale),
		Groups: groups,
	}

	var srv *resultserver.Server
	if serve {
		if addr == "" {
			addr = r.cfg.Server.ListenAddr
		}
		srv = resultserver.NewServer(addr, r.pipeline, r.log)
		events := make(chan scheduler.Event, 16)
		r.pipeline.SetRunHook(func(c *coordinator.Coordinator, s *scheduler.Scheduler) {
			s.SetEvents(events)
			srv.SetRun(c, s)
		})
		serveCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := srv.Start(serveCtx, events); err != nil {
				r.log.Error("result server stopped", "error", err)
			}
		}()
	}

	res, err := r.enqueueAndWait(ctx, job)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "run %s complete: %d mover(s)\n", job.ID, len(res.Movers))
	for i, m := range res.Movers {
		fmt.Fprintf(out, "  [%d] motion=%.4f arcsec/min pa=%.2f deg errMid=%.3f score=%.3f\n",
			i, m.Motion, m.PA*180/math.Pi, m.ErrMid, m.Score)
	}
	return nil
}

func newConfigCmd(root *Root) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the active configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the active configuration as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(root.cfg)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Load and validate the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := huntconfig.Load()
			if err != nil {
				return err
			}
			if cfg.Sweep.MotionMinArcsecPerMin > cfg.Sweep.MotionMaxArcsecPerMin {
				return fmt.Errorf("sweep.motion_min exceeds sweep.motion_max")
			}
			if cfg.Sweep.PAMinDeg > cfg.Sweep.PAMaxDeg {
				return fmt.Errorf("sweep.pa_min exceeds sweep.pa_max")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "configuration OK")
			return nil
		},
	})
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), "huntmover dev")
			return nil
		},
	}
}
