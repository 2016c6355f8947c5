package main

import (
	"context"
	"log"
	"time"

	"content-analysis-platform/internal/ai"
	"content-analysis-platform/internal/cache"
	"content-analysis-platform/internal/config"
	"content-analysis-platform/internal/logger"
	"content-analysis-platform/internal/queue"
	"content-analysis-platform/internal/vectorstore"
	"content-analysis-platform/services"

	"github.com/hibiken/asynq"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer rdb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	aiClient, err := ai.NewClient(ctx, cfg)
	if err != nil {
		cancel()
		log.Fatal("Failed to initialize AI client:", err)
	}
	defer aiClient.Close()

	index, err := vectorstore.NewStore(ctx, cfg)
	cancel()
	if err != nil {
		log.Fatal("Failed to connect to vector index:", err)
	}

	// The worker runs the exact pipeline the synchronous API uses.
	pipeline := services.NewContentPipeline(
		aiClient,
		index,
		cache.New(rdb),
		time.Duration(cfg.CacheTTLSeconds)*time.Second,
	)

	redisOpt, err := config.AsynqRedisOpt(cfg)
	if err != nil {
		log.Fatal("Failed to build queue options:", err)
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.WorkerConcurrency,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("Task failed", "type", task.Type(), "error", err)
			}),
		},
	)

	processor := queue.NewTaskProcessor(pipeline)

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskIngestContent, processor.IngestContent)

	logger.Info("Starting ingest worker", "concurrency", cfg.WorkerConcurrency)

	if err := server.Run(mux); err != nil {
		log.Fatal("Failed to start worker:", err)
	}
}
