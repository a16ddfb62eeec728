package separate

import (
	"io"
	"os"

	"diarserver/internal/audio"
)

// extractSliceViaFFmpeg delegates to the audio package's slice extraction,
// giving the separation pipeline a package-local name that reads naturally
// alongside its other steps.
func extractSliceViaFFmpeg(cancel <-chan struct{}, ffmpegBin, inputPath string, startTime, endTime float64, outputPath string) error {
	return audio.ExtractSlice(cancel, ffmpegBin, inputPath, startTime, endTime, outputPath)
}

// copyFile copies src to dst, matching the teacher pack's orchestrator
// copyFile helper.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
