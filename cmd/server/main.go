package main

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"diarserver/internal/cache"
	"diarserver/internal/config"
	"diarserver/internal/diarize"
	"diarserver/internal/handlers"
	"diarserver/internal/scheduler"
	"diarserver/internal/separate"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	startedAt := time.Now()

	if err := diarize.FromDiarizeConfig(cfg.Diarize).Validate(); err != nil {
		log.Printf("warning: %v (segmentation backend will fail to initialize lazily on first request)", err)
	}

	sched := scheduler.Get(cfg.Scheduler)
	cch := cache.Get(cfg.Cache)
	sep := separate.Get(cfg.Separate, cfg.FFmpegBin)

	diarizationHandler := handlers.NewDiarizationHandler(cfg, sched, cch)
	separateHandler := handlers.NewSeparateHandler(cfg, sched, sep)
	healthHandler := handlers.NewHealthHandler(sched, startedAt)

	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	e.POST("/api/diarization", diarizationHandler.Diarize)
	e.POST("/api/separate", separateHandler.Separate)
	e.GET("/api/health", healthHandler.Health)

	log.Printf("Starting diarserver on port %s", cfg.Port)
	if err := e.Start(fmt.Sprintf(":%s", cfg.Port)); err != nil {
		log.Fatal(err)
	}
}
