package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"

	"breezbook/internal/config"
	"breezbook/internal/database"
	"breezbook/internal/logging"
	"breezbook/internal/service"
)

func main() {
	configPath := flag.String("config", envOr("CONFIG_PATH", "configs/config.yaml"), "path to config file")
	flag.Parse()

	if err := run(*configPath, flag.Args()); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run(configPath string, files []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if closer != nil {
		defer closer.Close()
	}
	logger := baseLogger.With().Str("component", "seed").Logger()

	opts, err := service.EngineOptionsFrom(cfg.Engine)
	if err != nil {
		return fmt.Errorf("engine config: %w", err)
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if len(files) == 0 {
		files = cfg.Tenants.SeedFiles
	}
	if len(files) == 0 {
		return errors.New("no tenant files given")
	}

	tenants := service.NewTenantService(db, opts, &logger)
	ctx := context.Background()
	saved := 0
	for _, path := range files {
		n, err := seedFile(ctx, tenants, path, &logger)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		saved += n
	}

	logger.Info().Int("tenants", saved).Msg("seed completed")
	return nil
}

// seedFile saves every YAML document in path as a tenant.
func seedFile(ctx context.Context, tenants *service.TenantService, path string, logger *zerolog.Logger) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	saved := 0
	for {
		var file config.TenantFile
		if err := dec.Decode(&file); err != nil {
			if errors.Is(err, io.EOF) {
				return saved, nil
			}
			return saved, fmt.Errorf("parse tenant document %d: %w", saved+1, err)
		}

		tenant, err := tenants.Save(ctx, file)
		if err != nil {
			return saved, fmt.Errorf("save tenant %q: %w", file.ID, err)
		}
		logger.Info().
			Str("tenant_id", string(tenant.ID)).
			Int("services", len(tenant.Config.Services)).
			Int("rules", len(tenant.Rules)).
			Msg("tenant saved")
		saved++
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
