// Package diarize implements the ONNX-driven segmentation model wrapper
// and its post-processor (spec §4.4): converting a normalized waveform
// into a time-ordered, non-overlapping list of speaker-tagged segments.
package diarize

import (
	"sort"
	"strconv"
)

// Segment is one contiguous time interval attributed to a single speaker,
// immutable once emitted (spec §3).
type Segment struct {
	StartTime float64
	EndTime   float64
	Speaker   int
}

// Duration returns EndTime - StartTime.
func (s Segment) Duration() float64 {
	return s.EndTime - s.StartTime
}

// SpeakerSummary mirrors spec §3's SpeakerSummary.
type SpeakerSummary struct {
	ID                   int
	DisplayName          string
	SegmentCount         int
	TotalDurationSeconds float64
	DisplayColor         string
}

// Result is spec §3's DiarizationResult.
type Result struct {
	Segments      []Segment
	Speakers      []SpeakerSummary
	TotalDuration float64
	TotalSpeakers int
}

// Palette is the fixed, insertion-order color palette of spec §6.
var Palette = []string{
	"#276b4d",
	"#518764",
	"#76a483",
	"#416e54",
	"#b8d6b6",
}

// minSegmentDuration is the shortest segment post-processing will emit
// (spec §3, §4.4 step 3).
const minSegmentDuration = 0.5

// BuildResult assembles a Result from a raw, possibly-unnormalized segment
// list: sorting by start time, relabeling speakers to first-seen order, and
// computing the speaker summary and palette assignment (spec §3's
// SpeakerSummary invariants). Both segmentation backends funnel their
// output through this so their result shape is identical, per spec §4.4's
// "Alternate path" clause.
func BuildResult(raw []Segment, totalDuration float64) Result {
	segs := normalize(raw)

	firstSeen := make(map[int]int) // original speaker id -> 0-based first-seen order
	order := 0
	relabeled := make([]Segment, len(segs))
	for i, s := range segs {
		idx, ok := firstSeen[s.Speaker]
		if !ok {
			idx = order
			firstSeen[s.Speaker] = idx
			order++
		}
		relabeled[i] = Segment{StartTime: s.StartTime, EndTime: s.EndTime, Speaker: idx}
	}

	summaries := make([]SpeakerSummary, order)
	for i := range summaries {
		summaries[i] = SpeakerSummary{
			ID:           i,
			DisplayName:  displayName(i),
			DisplayColor: Palette[i%len(Palette)],
		}
	}
	for _, s := range relabeled {
		summaries[s.Speaker].SegmentCount++
		summaries[s.Speaker].TotalDurationSeconds += s.Duration()
	}

	return Result{
		Segments:      relabeled,
		Speakers:      summaries,
		TotalDuration: totalDuration,
		TotalSpeakers: len(summaries),
	}
}

func displayName(zeroBasedIdx int) string {
	return "Speaker " + strconv.Itoa(zeroBasedIdx+1)
}

// normalize sorts by start time, drops segments shorter than
// minSegmentDuration, merges overlapping segments of the same speaker, and
// moves an overlapping different-speaker segment's start to the previous
// segment's end (dropping it if that leaves it too short), guaranteeing
// spec §3's DiarizationResult invariants
// regardless of which backend produced the raw segments.
func normalize(raw []Segment) []Segment {
	if len(raw) == 0 {
		return nil
	}
	sorted := make([]Segment, len(raw))
	copy(sorted, raw)
	sortSegments(sorted)

	out := make([]Segment, 0, len(sorted))
	for _, s := range sorted {
		if s.Duration() < minSegmentDuration {
			continue
		}
		if len(out) > 0 {
			prev := &out[len(out)-1]
			if s.StartTime < prev.EndTime && s.Speaker == prev.Speaker {
				if s.EndTime > prev.EndTime {
					prev.EndTime = s.EndTime
				}
				continue
			}
			if s.StartTime < prev.EndTime {
				s.StartTime = prev.EndTime
			}
			if s.Duration() < minSegmentDuration {
				continue
			}
		}
		out = append(out, s)
	}
	return out
}

func sortSegments(s []Segment) {
	sort.Slice(s, func(i, j int) bool { return s[i].StartTime < s[j].StartTime })
}
