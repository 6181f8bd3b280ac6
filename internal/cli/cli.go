// Package cli wires huntmover's subcommands to the configuration,
// pipeline and loader packages, built on spf13/cobra.
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"huntmover/internal/coordinator"
	"huntmover/internal/huntconfig"
	"huntmover/internal/runpipeline"
	"huntmover/internal/storage"
)

// Root wires CLI commands to the run pipeline, configuration and store.
type Root struct {
	cfg      *huntconfig.Config
	log      *slog.Logger
	store    *storage.Store
	pipeline *runpipeline.Pipeline
}

// NewRoot constructs the shared command context.
func NewRoot(cfg *huntconfig.Config, logger *slog.Logger, store *storage.Store, pipe *runpipeline.Pipeline) *Root {
	return &Root{cfg: cfg, log: logger, store: store, pipeline: pipe}
}

// coordinatorConfig translates the on-disk configuration contract into
// the slice internal/coordinator needs, pairing it with the pixel scale
// a loader.Source reports (FITS headers, or a synthetic dataset's
// configured scale) rather than a value stored in huntconfig.
func coordinatorConfig(cfg *huntconfig.Config, pixelScaleArcsecPerPixel float64) coordinator.Config {
	return coordinator.Config{
		PixelScaleArcsecPerPixel: pixelScaleArcsecPerPixel,

		MotionMin: cfg.Sweep.MotionMinArcsecPerMin,
		MotionMax: cfg.Sweep.MotionMaxArcsecPerMin,
		PAMin:     cfg.PAMinRadians(),
		PAMax:     cfg.PAMaxRadians(),

		TrkErrPixels:   cfg.Tolerance.TrkErrPixels,
		PosErrArcsec:   cfg.Tolerance.PosErrArcsec,
		AperturePixels: cfg.Tolerance.AperturePixel,
		MinPixBase:     cfg.Tolerance.TCountBase,

		DetectionSigma: cfg.Thresholds.Sigma1,
		StarMaskSigma:  cfg.Thresholds.Sigma2,

		StackBlackSigma: cfg.Thresholds.BlackFits,
		StackWhiteSigma: cfg.Thresholds.WhiteFits,
		FrameBlackSigma: cfg.Thresholds.BlackHist,
		FrameWhiteSigma: cfg.Thresholds.WhiteHist,
		LowerSigmaClip:  cfg.Thresholds.LowerSigmaClip,

		Blur:    cfg.Options.Blur,
		DeLine:  cfg.Options.DeLine,
		Flatten: cfg.Options.Flatten,
	}
}

// enqueueAndWait submits job to the pipeline and blocks until its
// matching result arrives, returning the result's error (if any).
func (r *Root) enqueueAndWait(ctx context.Context, job runpipeline.Job) (runpipeline.Result, error) {
	resCh, unsubscribe := r.pipeline.Subscribe()
	defer unsubscribe()

	if err := r.pipeline.Submit(job); err != nil {
		return runpipeline.Result{}, err
	}
	r.log.Info("run queued", "id", job.ID)

	for {
		select {
		case <-ctx.Done():
			return runpipeline.Result{}, ctx.Err()
		case res, ok := <-resCh:
			if !ok {
				return runpipeline.Result{}, fmt.Errorf("pipeline stopped before completion")
			}
			if res.Job.ID == job.ID {
				return res, res.Error
			}
		}
	}
}

// newID generates a run ID as a prefixed UUID.
func newID(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString())
}
