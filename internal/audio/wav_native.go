package audio

import (
	"bytes"
	"fmt"

	"github.com/go-audio/wav"

	"diarserver/internal/apierrors"
)

// looksLikeWAV checks the RIFF/WAVE magic bytes so the normalizer can
// short-circuit to in-process decoding instead of shelling out (spec
// §4.3's "MAY short-circuit for native WAV" clause).
func looksLikeWAV(data []byte) bool {
	return len(data) >= 12 &&
		bytes.Equal(data[0:4], []byte("RIFF")) &&
		bytes.Equal(data[8:12], []byte("WAVE"))
}

// decodeWAVNative decodes a WAV buffer in-process using go-audio/wav,
// downmixes to mono, and resamples to 16 kHz if necessary. It never shells
// out, keeping the common upload path free of a subprocess.
func decodeWAVNative(data []byte) (Waveform, error) {
	decoder := wav.NewDecoder(bytes.NewReader(data))
	if !decoder.IsValidFile() {
		return Waveform{}, fmt.Errorf("%w: not a valid WAV file", apierrors.ErrAudioDecodeFailure)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return Waveform{}, fmt.Errorf("%w: %v", apierrors.ErrAudioDecodeFailure, err)
	}
	if buf.Format == nil || buf.Format.NumChannels == 0 {
		return Waveform{}, fmt.Errorf("%w: missing WAV format chunk", apierrors.ErrAudioDecodeFailure)
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = 16
	}
	maxVal := float32(int64(1) << uint(bitDepth-1))

	interleaved := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		interleaved[i] = float32(v) / maxVal
	}

	mono := downmix(interleaved, buf.Format.NumChannels)
	resampled := resampleLinear(mono, buf.Format.SampleRate, TargetSampleRate)

	return validate(Waveform{Samples: resampled, SampleRate: TargetSampleRate})
}
