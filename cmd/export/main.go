package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"breezbook/internal/calendar"
	"breezbook/internal/config"
	"breezbook/internal/database"
	"breezbook/internal/export"
	"breezbook/internal/logging"
	"breezbook/internal/service"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	from := flag.String("from", "", "first date (YYYY-MM-DD), defaults to today")
	days := flag.Int("days", 0, "number of days, defaults to exports.days")
	dir := flag.String("out", "", "output directory, defaults to exports.path")
	flag.Parse()

	if v := os.Getenv("CONFIG_PATH"); v != "" && *configPath == "configs/config.yaml" {
		*configPath = v
	}

	if err := run(*configPath, *from, *days, *dir); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run(configPath, fromArg string, days int, dir string) error {
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
	logger := baseLogger.With().Str("component", "export").Logger()

	opts, err := service.EngineOptionsFrom(cfg.Engine)
	if err != nil {
		return fmt.Errorf("engine config: %w", err)
	}

	from := calendar.Today(opts.Clock, opts.Location)
	if fromArg != "" {
		if from, err = calendar.ParseIsoDate(fromArg); err != nil {
			return fmt.Errorf("invalid -from: %w", err)
		}
	}
	if days == 0 {
		days = cfg.Exports.Days
	}
	if dir == "" {
		dir = cfg.Exports.Path
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tenants := service.NewTenantService(db, opts, &logger)
	availability := service.NewAvailabilityService(db, tenants, nil, opts, &logger)
	workbook := export.NewAvailabilityWorkbook(tenants, availability, opts.MaxRangeDays, &logger)

	path, err := workbook.Export(ctx, dir, from, days)
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}
