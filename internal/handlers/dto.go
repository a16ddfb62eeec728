package handlers

import (
	"fmt"

	"diarserver/internal/diarize"
)

// segmentDTO and the rest of this file mirror spec §6's DiarizationResult
// JSON schema exactly.
type segmentDTO struct {
	ID        string  `json:"id"`
	Speaker   string  `json:"speaker"`
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
	Duration  float64 `json:"duration"`
}

type speakerDTO struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	SegmentCount  int     `json:"segmentCount"`
	TotalDuration float64 `json:"totalDuration"`
	Color         string  `json:"color"`
}

type diarizationResultDTO struct {
	Segments      []segmentDTO `json:"segments"`
	Speakers      []speakerDTO `json:"speakers"`
	Duration      float64      `json:"duration"`
	TotalSpeakers int          `json:"totalSpeakers"`
	Method        string       `json:"method"`
}

func toDTO(r diarize.Result) diarizationResultDTO {
	segments := make([]segmentDTO, len(r.Segments))
	for i, s := range r.Segments {
		segments[i] = segmentDTO{
			ID:        fmt.Sprintf("%d-%.2f-%.2f", s.Speaker, s.StartTime, s.EndTime),
			Speaker:   fmt.Sprintf("Speaker %d", s.Speaker+1),
			StartTime: s.StartTime,
			EndTime:   s.EndTime,
			Duration:  s.Duration(),
		}
	}

	speakers := make([]speakerDTO, len(r.Speakers))
	for i, sp := range r.Speakers {
		speakers[i] = speakerDTO{
			ID:            fmt.Sprintf("%d", sp.ID),
			Name:          sp.DisplayName,
			SegmentCount:  sp.SegmentCount,
			TotalDuration: sp.TotalDurationSeconds,
			Color:         sp.DisplayColor,
		}
	}

	return diarizationResultDTO{
		Segments:      segments,
		Speakers:      speakers,
		Duration:      r.TotalDuration,
		TotalSpeakers: r.TotalSpeakers,
		Method:        "PyAnnote ONNX",
	}
}
