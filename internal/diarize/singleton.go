package diarize

import (
	"context"
	"sync"

	"diarserver/internal/config"
)

var (
	segmenter     Segmenter
	segmenterErr  error
	segmenterOnce sync.Once
)

// Get returns the process-wide segmentation backend, initializing it
// lazily on first use per spec §4.4 "State". The backend is chosen by
// cfg.Backend ("frame" or "pyannote", default "pyannote" per SPEC_FULL's
// resolution of the corresponding Open Question) and, once constructed, is
// never reconfigured.
func Get(cfg config.Diarize) (Segmenter, error) {
	segmenterOnce.Do(func() {
		switch cfg.Backend {
		case "frame":
			var source *sherpaFrameSource
			source, segmenterErr = newSherpaFrameSource(FromDiarizeConfig(cfg))
			if segmenterErr == nil {
				segmenter = &FrameSegmenter{Source: source, Threshold: cfg.Threshold}
			}
		default:
			segmenter, segmenterErr = NewPyannoteSegmenter(FromDiarizeConfig(cfg))
		}
	})
	return segmenter, segmenterErr
}

// Diarize runs the configured segmentation backend over samples and
// assembles a complete Result, applying the shared normalization pass
// (BuildResult) so the output invariants of spec §3 hold regardless of
// backend.
func Diarize(ctx context.Context, seg Segmenter, samples []float32, sampleRate int, durationSeconds float64) (Result, error) {
	raw, err := seg.Segment(ctx, samples, sampleRate)
	if err != nil {
		return Result{}, err
	}
	return BuildResult(raw, durationSeconds), nil
}
