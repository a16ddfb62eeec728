package diarize

import "context"

// RawSegment is what a Segmenter backend produces before the shared
// normalization pass in BuildResult runs over it.
type RawSegment = Segment

// Segmenter runs the segmentation model over a waveform and returns
// speaker-tagged segments (spec §4.4). Both implemented backends satisfy
// this and are interchangeable, per spec's "output contract is identical"
// clause.
type Segmenter interface {
	Segment(ctx context.Context, samples []float32, sampleRate int) ([]RawSegment, error)
}

// FrameSource is anything that turns a waveform into per-frame class
// activations, the shape spec §4.4's "Model interface" describes: a
// [1, 1, N] input tensor and a [1, F, C] output tensor, exposed here as
// [F][C]float32 plus the source's own frame step in seconds, which
// FrameSegmenter replaces with audioDurationSeconds / F whenever F > 0.
// Implementing this lets any raw
// ONNX session drive FrameSegmenter without touching the post-processing
// algorithm.
type FrameSource interface {
	Activations(ctx context.Context, samples []float32, sampleRate int) (frames [][]float32, frameStep float64, err error)
}

// FrameSegmenter is the reference/primary backend of spec §4.4: it derives
// frameStep from the model's actual frame count rather than hard-coding
// the ~56 fps figure, then runs the exact five-step post-processing
// algorithm in postprocess.go. Threshold is config.Diarize.Threshold
// (DIARIZE_THRESHOLD), defaulting to 0.3 per spec §4.4 step 2.
type FrameSegmenter struct {
	Source    FrameSource
	Threshold float32
}

func (f *FrameSegmenter) Segment(ctx context.Context, samples []float32, sampleRate int) ([]RawSegment, error) {
	frames, frameStep, err := f.Source.Activations(ctx, samples, sampleRate)
	if err != nil {
		return nil, err
	}
	if len(frames) > 0 && sampleRate > 0 {
		frameStep = float64(len(samples)) / float64(sampleRate) / float64(len(frames))
	}
	return FromFrames(frames, frameStep, f.Threshold), nil
}
