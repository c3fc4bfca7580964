package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/cortexa-labs/ragserve/persona"
	"github.com/cortexa-labs/ragserve/types"
)

// identityUpserter stores a tenant identity document.
type identityUpserter interface {
	UpsertIdentity(ctx context.Context, identity *persona.Identity) error
}

func runProvision(args []string) {
	fs := flag.NewFlagSet("provision", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	tenantID := fs.String("tenant", "", "Tenant to provision")
	identityPath := fs.String("identity", "", "Identity document file (JSON)")
	fs.Parse(args)

	if *tenantID == "" || *identityPath == "" {
		fmt.Fprintln(os.Stderr, "provision requires --tenant and --identity")
		fs.Usage()
		os.Exit(1)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Identity.Mode != "mongo" {
		fmt.Fprintln(os.Stderr, "provision writes identity documents directly; it requires identity.mode: mongo")
		os.Exit(1)
	}

	logger := initLogger(cfg.Log)
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, disconnect, err := persona.ConnectMongoStore(ctx,
		cfg.Identity.MongoURI,
		cfg.Identity.MongoDatabase,
		cfg.Identity.MongoCollection,
	)
	if err != nil {
		logger.Fatal("failed to connect identity store", zap.Error(err))
	}
	defer disconnect(context.Background())

	raw, err := os.ReadFile(*identityPath)
	if err != nil {
		logger.Fatal("failed to read identity file", zap.Error(err))
	}
	if err := provisionIdentity(ctx, store, *tenantID, raw); err != nil {
		logger.Fatal("provisioning failed", zap.String("tenant", *tenantID), zap.Error(err))
	}
	logger.Info("identity provisioned", zap.String("tenant", *tenantID))
}

// provisionIdentity parses, validates, and stores one identity document. The
// tenant flag wins over any tenant_id embedded in the file.
func provisionIdentity(ctx context.Context, store identityUpserter, tenantID string, raw []byte) error {
	var identity persona.Identity
	if err := json.Unmarshal(raw, &identity); err != nil {
		return types.NewError(types.ErrInvalidRequest, "identity file is not valid JSON").WithCause(err)
	}
	identity.TenantID = tenantID

	if err := identity.Validate(); err != nil {
		return err
	}
	return store.UpsertIdentity(ctx, &identity)
}
