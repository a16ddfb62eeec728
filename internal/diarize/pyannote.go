package diarize

import (
	"context"
	"fmt"
	"os"

	sherpa "github.com/k2-fsa/sherpa-onnx-go/sherpa_onnx"

	"diarserver/internal/apierrors"
	"diarserver/internal/config"
)

// PyannoteConfig holds the configuration for the production segmentation
// backend: a pyannote-family segmentation model composed with a
// speaker-embedding model and a clustering stage (spec §4.4 "Alternate
// path"), following the same Config-struct idiom as
// internal/asr.Config/VADConfig in the teacher project.
type PyannoteConfig struct {
	SegmentationModel string
	EmbeddingModel    string
	ClusterThreshold  float32
	NumClusters       int
	MinDurationOn     float32
	MinDurationOff    float32
	NumThreads        int
}

// FromDiarizeConfig adapts internal/config.Diarize into a PyannoteConfig.
func FromDiarizeConfig(cfg config.Diarize) PyannoteConfig {
	return PyannoteConfig{
		SegmentationModel: cfg.SegmentationModel,
		EmbeddingModel:    cfg.EmbeddingModel,
		ClusterThreshold:  cfg.ClusterThreshold,
		NumClusters:       cfg.NumClusters,
		MinDurationOn:     cfg.MinDurationOn,
		MinDurationOff:    cfg.MinDurationOff,
		NumThreads:        cfg.NumThreads,
	}
}

// Validate checks that both model files are present, mirroring
// internal/asr.Config.Validate.
func (c PyannoteConfig) Validate() error {
	files := map[string]string{
		"segmentation model": c.SegmentationModel,
		"embedding model":    c.EmbeddingModel,
	}
	for name, path := range files {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return fmt.Errorf("%w: %s not found: %s", apierrors.ErrModelLoadFailure, name, path)
		}
	}
	return nil
}

// PyannoteSegmenter wraps sherpa.OfflineSpeakerDiarization: a composed
// pipeline that runs the pyannote segmentation model, extracts embeddings
// per candidate speech region, and clusters them (cosine distance,
// auto-detected cluster count unless NumClusters is set) to produce
// finished segments directly, without exposing per-frame tensors.
type PyannoteSegmenter struct {
	cfg  PyannoteConfig
	impl *sherpa.OfflineSpeakerDiarization
}

// NewPyannoteSegmenter constructs and loads the composed diarization
// pipeline. It fails with ErrModelLoadFailure if either model file is
// missing.
func NewPyannoteSegmenter(cfg PyannoteConfig) (*PyannoteSegmenter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sherpaCfg := sherpa.OfflineSpeakerDiarizationConfig{
		Segmentation: sherpa.OfflineSpeakerSegmentationModelConfig{
			Pyannote: sherpa.OfflineSpeakerSegmentationPyannoteModelConfig{
				Model: cfg.SegmentationModel,
			},
			NumThreads: cfg.NumThreads,
			Debug:      0,
		},
		Embedding: sherpa.SpeakerEmbeddingExtractorConfig{
			Model:      cfg.EmbeddingModel,
			NumThreads: cfg.NumThreads,
		},
		Clustering: sherpa.FastClusteringConfig{
			NumClusters: cfg.NumClusters,
			Threshold:   cfg.ClusterThreshold,
		},
		MinDurationOn:  cfg.MinDurationOn,
		MinDurationOff: cfg.MinDurationOff,
	}

	impl := sherpa.NewOfflineSpeakerDiarization(&sherpaCfg)
	if impl == nil {
		return nil, fmt.Errorf("%w: failed to construct offline speaker diarization pipeline", apierrors.ErrModelLoadFailure)
	}

	return &PyannoteSegmenter{cfg: cfg, impl: impl}, nil
}

// Segment runs the composed pipeline over samples (mono, sampleRate Hz)
// and returns its clustered segments, mapped into diarize.Segment. ctx is
// checked once before inference starts; the library call itself is not
// interrupted by cancellation, so the scheduler's own timeout is the hard
// backstop for inference that runs long.
func (p *PyannoteSegmenter) Segment(ctx context.Context, samples []float32, sampleRate int) ([]RawSegment, error) {
	select {
	case <-ctx.Done():
		return nil, apierrors.ErrCancelled
	default:
	}

	result := p.impl.Process(samples)
	if result == nil {
		return nil, fmt.Errorf("%w: diarization returned no result", apierrors.ErrInferenceFailure)
	}

	segments := make([]RawSegment, 0, len(result))
	for i := 0; i < len(result); i++ {
		seg := result[i]
		segments = append(segments, RawSegment{
			StartTime: float64(seg.Start),
			EndTime:   float64(seg.End),
			Speaker:   seg.Speaker,
		})
	}
	return segments, nil
}

// Close releases the underlying pipeline's native resources.
func (p *PyannoteSegmenter) Close() {
	if p.impl != nil {
		sherpa.DeleteOfflineSpeakerDiarization(p.impl)
		p.impl = nil
	}
}
