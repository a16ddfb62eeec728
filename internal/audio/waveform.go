// Package audio implements the normalization stage of spec §4.3: turning an
// arbitrary-format input buffer into a mono 16 kHz waveform in [-1, 1], the
// segmentation model's required input.
package audio

import "diarserver/internal/apierrors"

// TargetSampleRate is the segmentation model's required input rate.
const TargetSampleRate = 16000

// Waveform is a mono, floating-point PCM buffer.
type Waveform struct {
	Samples    []float32
	SampleRate int
}

// DurationSeconds returns the waveform's length in seconds.
func (w Waveform) DurationSeconds() float64 {
	if w.SampleRate == 0 {
		return 0
	}
	return float64(len(w.Samples)) / float64(w.SampleRate)
}

func validate(w Waveform) (Waveform, error) {
	if len(w.Samples) == 0 {
		return w, apierrors.ErrEmptyAudio
	}
	return w, nil
}

// downmix averages interleaved multi-channel samples into a single mono
// channel, sample-wise, per spec §4.3.
func downmix(interleaved []float32, channels int) []float32 {
	if channels <= 1 {
		return interleaved
	}
	frames := len(interleaved) / channels
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for ch := 0; ch < channels; ch++ {
			sum += interleaved[i*channels+ch]
		}
		out[i] = sum / float32(channels)
	}
	return out
}

// resampleLinear performs linear interpolation between adjacent source
// samples, the in-process fallback described in spec §4.3. Output length is
// round(srcLen * toRate / fromRate).
func resampleLinear(samples []float32, fromRate, toRate int) []float32 {
	if fromRate == toRate || len(samples) == 0 {
		return samples
	}

	ratio := float64(toRate) / float64(fromRate)
	outLen := int(float64(len(samples))*ratio + 0.5)
	if outLen <= 0 {
		return nil
	}

	out := make([]float32, outLen)
	srcLastIdx := float64(len(samples) - 1)
	for i := 0; i < outLen; i++ {
		srcPos := float64(i) / ratio
		if srcPos >= srcLastIdx {
			out[i] = samples[len(samples)-1]
			continue
		}
		lo := int(srcPos)
		frac := srcPos - float64(lo)
		out[i] = samples[lo]*float32(1-frac) + samples[lo+1]*float32(frac)
	}
	return out
}
