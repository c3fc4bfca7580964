package config

import "time"

// DefaultConfig returns the service defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    120 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Knowledge: KnowledgeConfig{
			Backend: "fs",
			Root:    "./data/knowledge",
		},
		Database: DatabaseConfig{
			Driver:          "postgres",
			Host:            "localhost",
			Port:            5432,
			User:            "ragserve",
			Name:            "ragserve",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Identity: IdentityConfig{
			Mode:            "http",
			BaseURL:         "http://localhost:9000",
			Timeout:         10 * time.Second,
			MongoDatabase:   "ragserve",
			MongoCollection: "identities",
		},
		Embedding: EmbeddingConfig{
			BaseURL: "http://localhost:8001",
			Model:   "bge-small-en-v1.5",
			Timeout: 30 * time.Second,
		},
		Inference: InferenceConfig{
			BaseURL:     "http://localhost:8000",
			ModelPrefix: "phi-3.1-mini",
			Temperature: 0.2,
			Timeout:     60 * time.Second,
		},
		Retrieval: RetrievalConfig{
			TopK:      5,
			ChunkSize: 500,
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			RPS:     50,
			Burst:   100,
		},
		Log: LogConfig{
			Level:        "info",
			Format:       "json",
			OutputPaths:  []string{"stdout"},
			EnableCaller: true,
		},
	}
}
