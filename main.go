package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"cuesens/config"
	"cuesens/handlers"
	"cuesens/internal/aiclient"
	"cuesens/internal/ffmpeg"
	"cuesens/internal/pipeline"
	"cuesens/internal/storage"
	"cuesens/internal/store"
	"cuesens/internal/worker"
	"cuesens/middleware"
)

func main() {
	cfg := config.Load()
	log := config.NewLogger()

	supaClient, err := config.NewSupabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize Supabase: %v", err)
	}

	blobs := storage.NewBlobs(supaClient.Storage, log)
	if err := blobs.EnsureBuckets(); err != nil {
		log.WithError(err).Warn("Could not ensure storage buckets; uploads may fail")
	}
	projects := store.NewProjects(supaClient, log)

	ai := aiclient.New(cfg.AIServiceURL, log)
	pl := pipeline.New(
		pipeline.Config{
			SimilarityThreshold: cfg.SimilarityThreshold,
			MinGapSeconds:       cfg.MinGapSeconds,
			FrameWidth:          cfg.FrameWidth,
			FrameHeight:         cfg.FrameHeight,
			RenderTimeout:       cfg.RenderTimeout,
			ARollBucket:         storage.BucketARoll,
			BRollBucket:         storage.BucketBRoll,
			OutputBucket:        storage.BucketOutput,
		},
		pipeline.Deps{
			Store:   projects,
			Blobs:   blobs,
			Speech:  ai,
			Vision:  ai,
			Scorer:  aiclient.NewSimilarityScorer(ai),
			Encoder: ffmpeg.Encoder{},
		},
		log,
	)

	dispatcher := worker.NewDispatcher(cfg.MaxWorkers, cfg.JobQueueSize)
	dispatcher.Run()

	h := handlers.NewApplicationHandler(log, projects, blobs, pl, dispatcher)

	app := fiber.New(fiber.Config{
		BodyLimit: 512 * 1024 * 1024, // raw video uploads
	})
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))
	app.Use(middleware.RequestLogger(log))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":  "ok",
			"message": "Cuesens API is healthy",
		})
	})

	apiV1 := app.Group("/api/v1")
	apiV1.Post("/projects", h.CreateProject)
	apiV1.Get("/projects", h.GetProjects)
	apiV1.Get("/projects/:id", h.GetProject)
	apiV1.Get("/projects/:id/output", h.GetProjectOutput)

	apiV1.Post("/projects/:id/a-roll", h.UploadARoll)
	apiV1.Post("/projects/:id/b-roll", h.UploadBRolls)

	apiV1.Post("/projects/:id/transcribe", h.StartTranscription)
	apiV1.Post("/projects/:id/analyze", h.StartAnalysis)
	apiV1.Post("/projects/:id/match", h.StartMatching)
	apiV1.Post("/projects/:id/render", h.StartRender)

	go func() {
		log.Infof("Starting Cuesens API on port %s", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("Server stopped: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down")
	if err := app.Shutdown(); err != nil {
		log.WithError(err).Error("Server shutdown failed")
	}
	dispatcher.Stop()
	log.Info("Shutdown complete")
}
