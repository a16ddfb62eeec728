package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"diarserver/internal/apierrors"
	"diarserver/internal/audio"
	"diarserver/internal/config"
	"diarserver/internal/scheduler"
	"diarserver/internal/separate"
)

// SeparateHandler serves POST /api/separate (spec §6).
type SeparateHandler struct {
	cfg      *config.Config
	sched    *scheduler.Scheduler
	pipeline *separate.Pipeline
}

// NewSeparateHandler constructs a SeparateHandler.
func NewSeparateHandler(cfg *config.Config, sched *scheduler.Scheduler, pipeline *separate.Pipeline) *SeparateHandler {
	return &SeparateHandler{cfg: cfg, sched: sched, pipeline: pipeline}
}

// segmentRequestDTO mirrors the wire shape of one entry in the "segments"
// form field.
type segmentRequestDTO struct {
	Speaker   int     `json:"speaker"`
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
}

// Separate handles POST /api/separate: upload + segment list -> enqueue on
// the scheduler -> slice + isolate each segment -> ZIP response.
func (h *SeparateHandler) Separate(c echo.Context) error {
	if c.Request().ContentLength > h.cfg.MaxUploadBytes {
		return c.JSON(http.StatusRequestEntityTooLarge, map[string]string{
			"error": "upload exceeds the 100 MiB limit",
		})
	}

	fh, err := c.FormFile("audio")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing required field: audio"})
	}
	f, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "failed to open uploaded file"})
	}
	defer f.Close()

	limited := http.MaxBytesReader(nil, f, h.cfg.MaxUploadBytes+1)
	data, err := io.ReadAll(limited)
	if err != nil || int64(len(data)) > h.cfg.MaxUploadBytes {
		return c.JSON(http.StatusRequestEntityTooLarge, map[string]string{
			"error": "upload exceeds the 100 MiB limit",
		})
	}

	rawSegments := c.FormValue("segments")
	if rawSegments == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing required field: segments"})
	}
	var dtoSegments []segmentRequestDTO
	if err := json.Unmarshal([]byte(rawSegments), &dtoSegments); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "segments must be a JSON array of {speaker,startTime,endTime}"})
	}
	if len(dtoSegments) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "segments must contain at least one entry"})
	}

	numSpeakers := len(dtoSegments)
	if raw := c.FormValue("numSpeakers"); raw != "" {
		var n int
		if _, err := fmt.Sscanf(raw, "%d", &n); err == nil && n > 0 {
			numSpeakers = n
		}
	}

	segments := make([]separate.SegmentRequest, len(dtoSegments))
	for i, s := range dtoSegments {
		if s.EndTime <= s.StartTime {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "segment endTime must be after startTime"})
		}
		segments[i] = separate.SegmentRequest{Speaker: s.Speaker, StartTime: s.StartTime, EndTime: s.EndTime}
	}

	cancel := c.Request().Context().Done()
	taskID := uuid.NewString()

	value, err := h.sched.Enqueue(taskID, func(stop <-chan struct{}) (interface{}, error) {
		return runSeparation(stop, h.cfg, h.pipeline, data, segments, numSpeakers)
	}, cancel)

	if err != nil {
		return mapError(c, err)
	}

	archive := value.([]byte)
	if numSpeakers > 2 {
		c.Response().Header().Set("X-Separation-Warning",
			"numSpeakers exceeds the separation model's 2-track limit; sources beyond 2 are rotated across the two available tracks")
	}
	filename := fmt.Sprintf("separated-speakers-%d.zip", time.Now().Unix())
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	return c.Blob(http.StatusOK, "application/zip", archive)
}

// runSeparation normalizes the upload and runs the separation pipeline
// over it. It is the scheduler work function for /api/separate.
func runSeparation(stop <-chan struct{}, cfg *config.Config, pipeline *separate.Pipeline, data []byte, segments []separate.SegmentRequest, numSpeakers int) ([]byte, error) {
	waveform, err := audio.Normalize(stop, cfg.FFmpegBin, data)
	if err != nil {
		return nil, err
	}
	archive, err := pipeline.Run(stop, waveform, segments, numSpeakers)
	if err != nil {
		return nil, err
	}
	if len(archive) == 0 {
		return nil, apierrors.ErrSeparationFailure
	}
	return archive, nil
}
