// Package separate implements the companion separation pipeline of spec
// §4.5: given the original audio and a diarization segment list, it slices
// out each segment, hands it to an external source-separation process, and
// bundles the isolated clips into a single ZIP archive.
package separate

// Output mirrors spec §3's SeparationOutput. AudioPath names a temporary
// file whose lifetime is bounded by the pipeline's cleanup pass.
type Output struct {
	Speaker   int
	StartTime float64
	EndTime   float64
	AudioPath string
}

// SegmentRequest is the caller-supplied input for one segment to isolate.
type SegmentRequest struct {
	Speaker   int
	StartTime float64
	EndTime   float64
}
