// Command index bulk-loads a story repository into the vector store. By
// default it runs once and exits; with -nats it stays up and serves reindex
// commands from the bus.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"

	"github.com/lorebase/lorebase/engine/config"
	"github.com/lorebase/lorebase/engine/index"
	"github.com/lorebase/lorebase/engine/segment"
	"github.com/lorebase/lorebase/engine/semantic"
	"github.com/lorebase/lorebase/pkg/metrics"
	"github.com/lorebase/lorebase/pkg/ollama"
)

func main() {
	var (
		root        = flag.String("root", ".", "story repository root")
		force       = flag.Bool("force", false, "drop and rebuild the collection")
		configPath  = flag.String("config", "lorebase.yaml", "configuration file")
		ollamaURL   = flag.String("ollama", "http://localhost:11434", "Ollama base URL")
		qdrantAddr  = flag.String("qdrant", "localhost:6334", "Qdrant gRPC address")
		collection  = flag.String("collection", "lorebase", "Qdrant collection name")
		natsURL     = flag.String("nats", "", "NATS URL; when set, stay up and serve reindex commands")
		metricsPort = flag.Int("metrics-port", 0, "metrics port; 0 disables the endpoint")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(*root, *force, *configPath, *ollamaURL, *qdrantAddr, *collection, *natsURL, *metricsPort, logger); err != nil {
		logger.Error("indexing failed", "error", err)
		os.Exit(1)
	}
}

func run(root string, force bool, configPath, ollamaURL, qdrantAddr, collection, natsURL string, metricsPort int, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	store, err := semantic.New(qdrantAddr, collection)
	if err != nil {
		return err
	}
	defer store.Close()

	client := ollama.New(ollamaURL)
	if err := client.CheckModel(ctx, cfg.Models.Embedding.Model); err != nil {
		logger.Warn("embedding model check failed", "model", cfg.Models.Embedding.Model, "error", err)
	}

	reg := metrics.New()
	if metricsPort > 0 {
		reg.ServeAsync(metricsPort)
	}

	ix := index.New(index.Deps{
		Segmenter: segment.New(segment.Options{
			MinChunkSize:   cfg.Chunking.MinChunkSize,
			MinSectionSize: cfg.Chunking.MinSectionSize,
			ContextChars:   cfg.Chunking.ContextChars,
			AddContext:     cfg.Chunking.AddContext,
		}),
		Embedder: &embedAdapter{client: client, model: cfg.Models.Embedding.Model},
		Store:    store,
		Rules:    cfg.DocTypes,
		Metrics:  reg,
		Logger:   logger,
	}, index.Options{
		Dimensions:       cfg.Models.Embedding.Dimensions,
		Workers:          cfg.Index.Workers,
		StorageBatchSize: cfg.Index.StorageBatchSize,
		IgnorePatterns:   cfg.Index.IgnorePatterns,
	})

	stats, err := ix.Run(ctx, root, force)
	if err != nil {
		return err
	}
	logger.Info("index run complete", "files", stats.FilesIndexed, "chunks", stats.Chunks)

	if natsURL == "" {
		return nil
	}

	nc, err := nats.Connect(natsURL, nats.Name("lorebase-index"))
	if err != nil {
		return err
	}
	defer nc.Drain()

	sub, err := ix.StartConsumer(nc, root)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	logger.Info("listening for reindex commands", "subject", index.ReindexSubject)
	<-ctx.Done()
	return nil
}

type embedAdapter struct {
	client *ollama.Client
	model  string
}

func (a *embedAdapter) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return a.client.EmbedBatch(ctx, a.model, texts)
}
