package separate

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
)

// buildArchive packages every output into a single ZIP, entry name
// "<speaker>_<startTime>-<endTime>.wav" with times to two decimal places,
// per spec §4.5.
func buildArchive(outputs []Output) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	for _, o := range outputs {
		name := fmt.Sprintf("%s_%.2f-%.2f.wav", speakerLabel(o.Speaker), o.StartTime, o.EndTime)
		entry, err := w.Create(name)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(o.AudioPath)
		if err != nil {
			return nil, err
		}
		if _, err := entry.Write(data); err != nil {
			return nil, err
		}
	}

	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func speakerLabel(zeroBasedID int) string {
	return fmt.Sprintf("Speaker %d", zeroBasedID+1)
}
