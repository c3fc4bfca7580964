package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/cortexa-labs/ragserve/config"
	"github.com/cortexa-labs/ragserve/embedding"
	"github.com/cortexa-labs/ragserve/knowledge"
	"github.com/cortexa-labs/ragserve/rag"
)

// sourceDocument is one entry of the ingest input file.
type sourceDocument struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

func runIngest(args []string) {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	tenantID := fs.String("tenant", "", "Tenant to ingest")
	inputPath := fs.String("input", "", "Source documents file (JSON)")
	fs.Parse(args)

	if *tenantID == "" || *inputPath == "" {
		fmt.Fprintln(os.Stderr, "ingest requires --tenant and --input")
		fs.Usage()
		os.Exit(1)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Log)
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := ingest(ctx, cfg, logger, *tenantID, *inputPath); err != nil {
		logger.Fatal("ingestion failed", zap.String("tenant", *tenantID), zap.Error(err))
	}
	logger.Info("ingestion complete", zap.String("tenant", *tenantID))
}

// ingest chunks the source documents, embeds every chunk, and persists the
// tenant's index and document artifacts through the configured store.
func ingest(ctx context.Context, cfg *config.Config, logger *zap.Logger, tenantID, inputPath string) error {
	raw, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	var sources []sourceDocument
	if err := json.Unmarshal(raw, &sources); err != nil {
		return fmt.Errorf("parse input: %w", err)
	}
	if len(sources) == 0 {
		return fmt.Errorf("input %s holds no documents", inputPath)
	}

	docs := knowledge.DocumentSet{}
	for _, src := range sources {
		for _, chunk := range rag.ChunkText(src.Text, cfg.Retrieval.ChunkSize) {
			docs.Texts = append(docs.Texts, chunk)
			docs.URLs = append(docs.URLs, src.URL)
		}
	}
	if len(docs.Texts) == 0 {
		return fmt.Errorf("no chunks produced from %d documents", len(sources))
	}
	logger.Info("chunked source documents",
		zap.String("tenant", tenantID),
		zap.Int("documents", len(sources)),
		zap.Int("chunks", len(docs.Texts)),
	)

	embedder := embedding.NewClient(embedding.Config{
		BaseURL: cfg.Embedding.BaseURL,
		APIKey:  cfg.Embedding.APIKey,
		Model:   cfg.Embedding.Model,
		Timeout: cfg.Embedding.Timeout,
	})
	vectors, err := embedder.EmbedDocuments(ctx, docs.Texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) == 0 {
		return fmt.Errorf("embedding service returned no vectors")
	}

	index, err := rag.NewFlatIndex(len(vectors[0]))
	if err != nil {
		return err
	}
	if err := index.Add(vectors...); err != nil {
		return fmt.Errorf("index chunks: %w", err)
	}

	var indexBuf bytes.Buffer
	if _, err := index.WriteTo(&indexBuf); err != nil {
		return fmt.Errorf("serialize index: %w", err)
	}
	docsData, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("serialize documents: %w", err)
	}

	writer, err := buildArtifactWriter(cfg, logger)
	if err != nil {
		return err
	}
	if err := writer.WriteIndex(ctx, tenantID, indexBuf.Bytes()); err != nil {
		return fmt.Errorf("store index: %w", err)
	}
	if err := writer.WriteDocuments(ctx, tenantID, docsData); err != nil {
		return fmt.Errorf("store documents: %w", err)
	}

	logger.Info("stored knowledge artifacts",
		zap.String("tenant", tenantID),
		zap.Int("vectors", index.Size()),
		zap.Int("dim", index.Dim()),
	)
	return nil
}

func buildArtifactWriter(cfg *config.Config, logger *zap.Logger) (knowledge.ArtifactWriter, error) {
	switch cfg.Knowledge.Backend {
	case "fs":
		return knowledge.NewFSStore(cfg.Knowledge.Root), nil
	case "db":
		pool, err := openDatabase(cfg.Database, logger)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		return knowledge.NewDBStore(pool.DB())
	default:
		return nil, fmt.Errorf("unknown knowledge backend %q", cfg.Knowledge.Backend)
	}
}
