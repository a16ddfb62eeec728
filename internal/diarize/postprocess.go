package diarize

import "math"

// FromFrames implements spec §4.4's five numbered post-processing steps
// exactly: softmax each frame's class logits, pick the active speaker slot
// if its probability clears threshold, walk frames merging consecutive
// same-speaker runs, and suppress anything shorter than minSegmentDuration.
// frames is [F][C]float32 (class 0 = non-speech, classes 1..C-1 = speaker
// slots); frameStep is the seconds each frame advances (audioDurationSeconds
// / F, never hard-coded by the caller). threshold is DIARIZE_THRESHOLD
// (config.Diarize.Threshold), not a package constant, so it is tunable per
// deployment without a rebuild.
func FromFrames(frames [][]float32, frameStep float64, threshold float32) []Segment {
	var segments []Segment

	currentSpeaker := -1 // -1 == non-speech
	segmentStart := 0.0

	closeSegment := func(endTime float64) {
		if currentSpeaker < 0 {
			return
		}
		if endTime-segmentStart >= minSegmentDuration {
			segments = append(segments, Segment{
				StartTime: segmentStart,
				EndTime:   endTime,
				Speaker:   currentSpeaker,
			})
		}
	}

	for i, logits := range frames {
		frameTime := float64(i) * frameStep
		speaker := activeSpeaker(logits, threshold)

		if speaker != currentSpeaker {
			closeSegment(frameTime)
			currentSpeaker = speaker
			segmentStart = frameTime
		}
	}

	closeSegment(float64(len(frames)) * frameStep)
	return segments
}

// activeSpeaker applies softmax (numerically stabilized) and returns the
// 0-indexed speaker slot with the highest probability, or -1 if the top
// class is non-speech or fails to clear threshold.
func activeSpeaker(logits []float32, threshold float32) int {
	if len(logits) < 2 {
		return -1
	}

	probs := softmax(logits)

	bestClass := 0
	bestProb := probs[0]
	for k := 1; k < len(probs); k++ {
		if probs[k] > bestProb {
			bestProb = probs[k]
			bestClass = k
		}
	}

	if bestClass == 0 || bestProb <= threshold {
		return -1
	}
	return bestClass - 1 // spec step 5: emitted speaker is k-1
}

// softmax is numerically stabilized by subtracting the per-frame max logit
// before exponentiating (spec §4.4 step 1).
func softmax(logits []float32) []float32 {
	maxLogit := logits[0]
	for _, v := range logits[1:] {
		if v > maxLogit {
			maxLogit = v
		}
	}

	exps := make([]float64, len(logits))
	var sum float64
	for i, v := range logits {
		e := math.Exp(float64(v - maxLogit))
		exps[i] = e
		sum += e
	}

	out := make([]float32, len(logits))
	for i, e := range exps {
		out[i] = float32(e / sum)
	}
	return out
}
