package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/angelmondragon/medrec-backend/internal/catalog"
	"github.com/angelmondragon/medrec-backend/pkg/config"
	"github.com/angelmondragon/medrec-backend/pkg/db"
	"github.com/angelmondragon/medrec-backend/pkg/enums"
	"github.com/angelmondragon/medrec-backend/pkg/logger"
	"github.com/angelmondragon/medrec-backend/pkg/metrics"
	"github.com/angelmondragon/medrec-backend/pkg/migrate"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "import-medicines"})

	_ = godotenv.Load()

	file := flag.String("file", "", "path to a .csv or .xlsx catalog file")
	format := flag.String("format", "", "csv|xlsx (defaults to the file extension)")
	sample := flag.Bool("sample", false, "load the built-in sample catalog instead of a file")
	flag.Parse()

	if *file == "" && !*sample {
		fmt.Fprintln(os.Stderr, "one of -file or -sample is required")
		os.Exit(2)
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "import-medicines",
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "file": *file, "sample": *sample})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	requireResource(ctx, logg, "migrations", migrate.MaybeRunDev(ctx, cfg, logg, dbClient))

	svc, err := catalog.NewService(catalog.NewRepository(dbClient.DB()), cfg.Catalog, logg)
	requireResource(ctx, logg, "catalog service", err)
	importer, err := catalog.NewImporter(svc, logg, metrics.NewImportMetrics(prometheus.NewRegistry()))
	requireResource(ctx, logg, "catalog importer", err)

	var report *catalog.ImportReport
	if *sample {
		report, err = importer.LoadSample(ctx)
	} else {
		report, err = importFile(ctx, importer, *file, *format)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "import failed: %v\n", err)
		os.Exit(1)
	}

	logg.Info(logg.WithFields(ctx, map[string]any{
		"created": report.Created,
		"updated": report.Updated,
		"errors":  report.Errors,
	}), "catalog import finished")

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(report)

	if report.Errors > 0 {
		os.Exit(1)
	}
}

func importFile(ctx context.Context, importer *catalog.Importer, path, rawFormat string) (*catalog.ImportReport, error) {
	format := enums.ImportFormat(strings.ToLower(strings.TrimSpace(rawFormat)))
	if format == "" {
		var err error
		if format, err = enums.ImportFormatFromFileName(path); err != nil {
			return nil, err
		}
	}
	if !format.IsValid() {
		return nil, fmt.Errorf("unsupported format %q", rawFormat)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	return importer.ImportFile(ctx, format, f)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
