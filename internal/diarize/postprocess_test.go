package diarize

import "testing"

// frame builds a [C]float32 logits row that will soft-max to nearly all
// mass on class winner.
func frame(numClasses, winner int) []float32 {
	logits := make([]float32, numClasses)
	logits[winner] = 10.0
	return logits
}

func TestFromFrames_SingleSpeakerSegment(t *testing.T) {
	// 10 frames, all attributed to speaker slot 1 (class index 1), 0.1s
	// frame step => 1.0s segment.
	frames := make([][]float32, 10)
	for i := range frames {
		frames[i] = frame(3, 1)
	}
	segs := FromFrames(frames, 0.1, 0.3)
	if len(segs) != 1 {
		t.Fatalf("expected 1 segment, got %d: %+v", len(segs), segs)
	}
	if segs[0].Speaker != 0 {
		t.Fatalf("expected speaker 0 (class 1 - 1), got %d", segs[0].Speaker)
	}
	if segs[0].StartTime != 0 || segs[0].EndTime != 1.0 {
		t.Fatalf("expected [0, 1.0], got [%v, %v]", segs[0].StartTime, segs[0].EndTime)
	}
}

func TestFromFrames_NonSpeechClassZeroProducesNoSegment(t *testing.T) {
	frames := make([][]float32, 10)
	for i := range frames {
		frames[i] = frame(3, 0)
	}
	segs := FromFrames(frames, 0.1, 0.3)
	if len(segs) != 0 {
		t.Fatalf("expected no segments, got %+v", segs)
	}
}

func TestFromFrames_ShortSegmentSuppressed(t *testing.T) {
	// only 3 frames at 0.1s = 0.3s, below the 0.5s minimum.
	frames := make([][]float32, 3)
	for i := range frames {
		frames[i] = frame(3, 1)
	}
	segs := FromFrames(frames, 0.1, 0.3)
	if len(segs) != 0 {
		t.Fatalf("expected short segment to be suppressed, got %+v", segs)
	}
}

func TestFromFrames_SpeakerTransition(t *testing.T) {
	frames := make([][]float32, 20)
	for i := 0; i < 10; i++ {
		frames[i] = frame(3, 1)
	}
	for i := 10; i < 20; i++ {
		frames[i] = frame(3, 2)
	}
	segs := FromFrames(frames, 0.1, 0.3)
	if len(segs) != 2 {
		t.Fatalf("expected 2 segments, got %d: %+v", len(segs), segs)
	}
	if segs[0].Speaker != 0 || segs[1].Speaker != 1 {
		t.Fatalf("expected speakers [0, 1], got [%d, %d]", segs[0].Speaker, segs[1].Speaker)
	}
	if segs[0].EndTime != segs[1].StartTime {
		t.Fatalf("expected abutting segments, got end=%v start=%v", segs[0].EndTime, segs[1].StartTime)
	}
}

func TestFromFrames_BelowThresholdIsNonSpeech(t *testing.T) {
	// near-uniform distribution over four classes: the top class gets
	// ~0.25, so no class clears the 0.3 threshold.
	frames := make([][]float32, 10)
	for i := range frames {
		frames[i] = []float32{0.1, 0.11, 0.09, 0.1}
	}
	segs := FromFrames(frames, 0.1, 0.3)
	if len(segs) != 0 {
		t.Fatalf("expected non-speech (below threshold), got %+v", segs)
	}
}

func TestFromFrames_ThresholdIsConfigurable(t *testing.T) {
	// probability ~0.47 for class 1: passes a lowered 0.3 threshold but
	// fails a raised 0.6 threshold, proving the caller's threshold (not a
	// package constant) governs the cutoff.
	frames := make([][]float32, 10)
	for i := range frames {
		frames[i] = []float32{0.0, 0.4, -0.4}
	}
	if segs := FromFrames(frames, 0.1, 0.3); len(segs) != 1 {
		t.Fatalf("expected 1 segment at threshold 0.3, got %+v", segs)
	}
	if segs := FromFrames(frames, 0.1, 0.6); len(segs) != 0 {
		t.Fatalf("expected no segment at threshold 0.6, got %+v", segs)
	}
}

func TestBuildResult_SpeakerNamingAndColors(t *testing.T) {
	raw := []Segment{
		{StartTime: 0, EndTime: 1.0, Speaker: 5},
		{StartTime: 1.0, EndTime: 2.0, Speaker: 9},
	}
	result := BuildResult(raw, 2.0)
	if result.TotalSpeakers != 2 {
		t.Fatalf("expected 2 speakers, got %d", result.TotalSpeakers)
	}
	if result.Speakers[0].DisplayName != "Speaker 1" || result.Speakers[1].DisplayName != "Speaker 2" {
		t.Fatalf("unexpected display names: %+v", result.Speakers)
	}
	if result.Speakers[0].DisplayColor != Palette[0] || result.Speakers[1].DisplayColor != Palette[1] {
		t.Fatalf("unexpected colors: %+v", result.Speakers)
	}
	if result.Segments[0].Speaker != 0 || result.Segments[1].Speaker != 1 {
		t.Fatalf("expected relabeled speakers [0, 1], got %+v", result.Segments)
	}
}

func TestBuildResult_SortsByStartTime(t *testing.T) {
	raw := []Segment{
		{StartTime: 5.0, EndTime: 6.0, Speaker: 0},
		{StartTime: 0.0, EndTime: 1.0, Speaker: 1},
	}
	result := BuildResult(raw, 6.0)
	if result.Segments[0].StartTime != 0.0 || result.Segments[1].StartTime != 5.0 {
		t.Fatalf("expected sorted segments, got %+v", result.Segments)
	}
}

func TestBuildResult_DropsSubMinimumSegments(t *testing.T) {
	raw := []Segment{
		{StartTime: 0, EndTime: 0.2, Speaker: 0}, // too short
		{StartTime: 1.0, EndTime: 2.0, Speaker: 0},
	}
	result := BuildResult(raw, 2.0)
	if len(result.Segments) != 1 {
		t.Fatalf("expected 1 surviving segment, got %+v", result.Segments)
	}
}
