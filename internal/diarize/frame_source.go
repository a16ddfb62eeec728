package diarize

import (
	"context"
	"fmt"

	sherpa "github.com/k2-fsa/sherpa-onnx-go/sherpa_onnx"

	"diarserver/internal/apierrors"
)

// sherpaFrameSource drives only the pyannote segmentation submodel, without
// the embedding or clustering stages, following the same Config-struct
// idiom as PyannoteSegmenter but exposing its raw per-frame class output
// instead of finished, clustered segments. This is the FrameSource
// FrameSegmenter needs to run spec §4.4's five-step post-processing
// algorithm itself rather than delegating to the library's own clustering.
// As with PyannoteSegmenter, sherpa-onnx-go's exact standalone-model API
// surface is inferred from its Config/New/Delete idiom rather than
// confirmed against the module source.
type sherpaFrameSource struct {
	model *sherpa.OfflineSpeakerSegmentationModel
}

func newSherpaFrameSource(cfg PyannoteConfig) (*sherpaFrameSource, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	modelCfg := sherpa.OfflineSpeakerSegmentationModelConfig{
		Pyannote: sherpa.OfflineSpeakerSegmentationPyannoteModelConfig{
			Model: cfg.SegmentationModel,
		},
		NumThreads: cfg.NumThreads,
		Debug:      0,
	}

	model := sherpa.NewOfflineSpeakerSegmentationModel(&modelCfg)
	if model == nil {
		return nil, fmt.Errorf("%w: failed to construct segmentation model", apierrors.ErrModelLoadFailure)
	}
	return &sherpaFrameSource{model: model}, nil
}

// Activations runs the segmentation submodel over samples and returns its
// per-frame class logits plus the model's frame shift in seconds.
func (s *sherpaFrameSource) Activations(ctx context.Context, samples []float32, sampleRate int) ([][]float32, float64, error) {
	select {
	case <-ctx.Done():
		return nil, 0, apierrors.ErrCancelled
	default:
	}

	frames := s.model.Forward(samples)
	if frames == nil {
		return nil, 0, fmt.Errorf("%w: segmentation model produced no output", apierrors.ErrInferenceFailure)
	}
	return frames, s.model.FrameShiftSeconds(), nil
}

// Close releases the underlying model's native resources.
func (s *sherpaFrameSource) Close() {
	if s.model != nil {
		sherpa.DeleteOfflineSpeakerSegmentationModel(s.model)
		s.model = nil
	}
}
