package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"diarserver/internal/apierrors"
	"diarserver/internal/audio"
	"diarserver/internal/cache"
	"diarserver/internal/config"
	"diarserver/internal/diarize"
	"diarserver/internal/scheduler"
)

// DiarizationHandler serves POST /api/diarization (spec §6).
type DiarizationHandler struct {
	cfg   *config.Config
	sched *scheduler.Scheduler
	cch   *cache.Cache
}

// NewDiarizationHandler constructs a DiarizationHandler, following the
// teacher's New<Name>Handler constructor convention.
func NewDiarizationHandler(cfg *config.Config, sched *scheduler.Scheduler, cch *cache.Cache) *DiarizationHandler {
	return &DiarizationHandler{cfg: cfg, sched: sched, cch: cch}
}

// Diarize handles POST /api/diarization: upload -> cache lookup -> enqueue
// onto the scheduler -> normalize -> segment -> respond.
func (h *DiarizationHandler) Diarize(c echo.Context) error {
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
	if err != nil {
		return c.JSON(http.StatusRequestEntityTooLarge, map[string]string{
			"error": "upload exceeds the 100 MiB limit",
		})
	}
	if int64(len(data)) > h.cfg.MaxUploadBytes {
		return c.JSON(http.StatusRequestEntityTooLarge, map[string]string{
			"error": "upload exceeds the 100 MiB limit",
		})
	}

	if cached, ok := h.cch.Get(data); ok {
		result := cached.(diarize.Result)
		return c.JSON(http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    toDTO(result),
			"cached":  true,
		})
	}

	cancel := c.Request().Context().Done()
	taskID := uuid.NewString()

	value, err := h.sched.Enqueue(taskID, func(stop <-chan struct{}) (interface{}, error) {
		return runDiarization(stop, h.cfg, data)
	}, cancel)

	if err != nil {
		return mapError(c, err)
	}

	result := value.(diarize.Result)
	h.cch.Set(data, result)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    toDTO(result),
	})
}

// runDiarization is the scheduler work function for /api/diarization:
// normalize, then segment.
func runDiarization(stop <-chan struct{}, cfg *config.Config, data []byte) (diarize.Result, error) {
	waveform, err := audio.Normalize(stop, cfg.FFmpegBin, data)
	if err != nil {
		return diarize.Result{}, err
	}

	seg, err := diarize.Get(cfg.Diarize)
	if err != nil {
		return diarize.Result{}, err
	}

	ctx, cancelFn := context.WithCancel(context.Background())
	defer cancelFn()
	go func() {
		select {
		case <-stop:
			cancelFn()
		case <-ctx.Done():
		}
	}()

	return diarize.Diarize(ctx, seg, waveform.Samples, waveform.SampleRate, waveform.DurationSeconds())
}

// mapError applies spec §7's propagation policy: validation/queue/timeout/
// cancellation errors get their dedicated status codes, everything else
// propagates as a 500 with the error's message.
func mapError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, apierrors.ErrCancelled):
		return c.NoContent(499)
	case errors.Is(err, apierrors.ErrTimeout):
		return c.NoContent(http.StatusGatewayTimeout)
	case errors.Is(err, apierrors.ErrQueueFull):
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "server is busy, try again later"})
	case errors.Is(err, apierrors.ErrBusy):
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "a separation is already in progress"})
	case errors.Is(err, apierrors.ErrInputValidation):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}
