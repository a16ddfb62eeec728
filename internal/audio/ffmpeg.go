package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"os/exec"

	"diarserver/internal/apierrors"
)

// decodeViaFFmpeg writes data to a temp file and shells out to the
// external audio tool with arguments equivalent to "-i IN -ar 16000 -ac 1
// OUT -y" (spec §6), reading raw PCM back over a pipe rather than through
// an intermediate WAV file on disk. This is the canonical decode path for
// any format the tool understands; only native WAV is short-circuited.
func decodeViaFFmpeg(cancel <-chan struct{}, ffmpegBin string, data []byte) (Waveform, error) {
	tmp, err := os.CreateTemp("", "diarize-in-*.audio")
	if err != nil {
		return Waveform{}, fmt.Errorf("%w: %v", apierrors.ErrAudioDecodeFailure, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return Waveform{}, fmt.Errorf("%w: %v", apierrors.ErrAudioDecodeFailure, err)
	}
	if err := tmp.Close(); err != nil {
		return Waveform{}, fmt.Errorf("%w: %v", apierrors.ErrAudioDecodeFailure, err)
	}

	ctx, cancelFn := context.WithCancel(context.Background())
	defer cancelFn()
	if cancel != nil {
		go func() {
			select {
			case <-cancel:
				cancelFn()
			case <-ctx.Done():
			}
		}()
	}

	cmd := exec.CommandContext(ctx, ffmpegBin,
		"-i", tmp.Name(),
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", fmt.Sprintf("%d", TargetSampleRate),
		"-ac", "1",
		"-loglevel", "error",
		"pipe:1",
	)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return Waveform{}, apierrors.ErrCancelled
		}
		return Waveform{}, fmt.Errorf("%w: %s", apierrors.ErrAudioDecodeFailure, stderr.String())
	}

	samples := pcm16leToFloat32(stdout.Bytes())
	return validate(Waveform{Samples: samples, SampleRate: TargetSampleRate})
}

// pcm16leToFloat32 converts little-endian signed 16-bit PCM to float32 in
// [-1, 1], the same conversion the teacher's transcription pipeline uses
// for every ffmpeg-sourced sample buffer.
func pcm16leToFloat32(data []byte) []float32 {
	n := len(data) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		s := int16(binary.LittleEndian.Uint16(data[i*2:]))
		out[i] = float32(s) / 32768.0
	}
	return out
}

// ExtractSlice invokes the audio tool to cut [startTime, endTime] out of a
// 16 kHz mono WAV file already on disk, used by the separation pipeline to
// isolate one segment's audio before handing it to the source-separation
// subprocess (spec §4.5).
func ExtractSlice(cancel <-chan struct{}, ffmpegBin, inputPath string, startTime, endTime float64, outputPath string) error {
	ctx, cancelFn := context.WithCancel(context.Background())
	defer cancelFn()
	if cancel != nil {
		go func() {
			select {
			case <-cancel:
				cancelFn()
			case <-ctx.Done():
			}
		}()
	}

	cmd := exec.CommandContext(ctx, ffmpegBin,
		"-ss", fmt.Sprintf("%.3f", startTime),
		"-i", inputPath,
		"-t", fmt.Sprintf("%.3f", endTime-startTime),
		"-ar", fmt.Sprintf("%d", TargetSampleRate),
		"-ac", "1",
		"-loglevel", "error",
		"-y", outputPath,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return apierrors.ErrCancelled
		}
		return fmt.Errorf("%w: %s", apierrors.ErrAudioDecodeFailure, stderr.String())
	}
	return nil
}

// WriteTempWAV writes a mono 16 kHz waveform to a new temporary WAV file
// and returns its path. Used by the separation pipeline to hand normalized
// audio to ffmpeg for slicing.
func WriteTempWAV(w Waveform, dir, pattern string) (string, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := writeWAV(f, w); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// writeWAV writes a minimal canonical 16-bit PCM mono WAV container.
func writeWAV(w io.Writer, wf Waveform) error {
	dataLen := len(wf.Samples) * 2
	var buf bytes.Buffer

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&buf, binary.LittleEndian, uint32(wf.SampleRate))
	byteRate := uint32(wf.SampleRate * 2)
	binary.Write(&buf, binary.LittleEndian, byteRate)
	binary.Write(&buf, binary.LittleEndian, uint16(2)) // block align
	binary.Write(&buf, binary.LittleEndian, uint16(16))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataLen))
	for _, s := range wf.Samples {
		v := int16(s * 32767)
		binary.Write(&buf, binary.LittleEndian, v)
	}

	_, err := w.Write(buf.Bytes())
	return err
}
