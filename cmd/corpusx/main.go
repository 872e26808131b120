// cmd/corpusx/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"corpusx/internal/adapters/archive"
	"corpusx/internal/adapters/fetch"
	"corpusx/internal/adapters/output"
	"corpusx/internal/adapters/relocate"
	"corpusx/internal/adapters/state"
	"corpusx/internal/core/domain"
	"corpusx/internal/core/usecases"
	"corpusx/internal/manifest"
	"corpusx/internal/platform/config"
	"corpusx/internal/platform/logx"
	"corpusx/internal/platform/rate"
	"corpusx/internal/platform/ui"
	"corpusx/internal/platform/workerpool"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.Default()
	cfg.LoadEnv()

	var showVersion bool
	pflag.StringVarP(&cfg.ManifestPath, "manifest", "m", cfg.ManifestPath, "YAML manifest of datasets to provision (default: builtin set)")
	pflag.StringVarP(&cfg.DatasetRoot, "root", "r", cfg.DatasetRoot, "canonical dataset root directory")
	pflag.StringVar(&cfg.BuiltinSet, "set", cfg.BuiltinSet, "builtin dataset set when no manifest is given")
	pflag.IntVarP(&cfg.Workers, "workers", "w", cfg.Workers, "max datasets in flight (0 = min(4, count))")
	pflag.BoolVar(&cfg.Force, "force", false, "overwrite colliding entries when relocating")
	pflag.BoolVar(&cfg.CheckOnly, "check", false, "report persisted state without provisioning")
	pflag.BoolVarP(&cfg.Quiet, "quiet", "q", false, "disable interactive output")
	pflag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	pflag.Float64Var(&cfg.RateLimitMBps, "rate-limit", cfg.RateLimitMBps, "download bandwidth cap in MB/s (0 = unlimited)")
	pflag.DurationVar(&cfg.HTTPTimeout, "http-timeout", cfg.HTTPTimeout, "per-request header timeout for HTTP fetches")
	pflag.StringVar(&cfg.ReportPath, "report", cfg.ReportPath, "write the run report as JSON to this path")
	pflag.StringVar(&cfg.Scheduler, "scheduler", cfg.Scheduler, "dispatch order: fifo or weighted")
	pflag.BoolVarP(&showVersion, "version", "V", false, "print version and exit")
	pflag.Parse()

	if showVersion {
		fmt.Printf("corpusx %s\n", version)
		return 0
	}

	if err := cfg.Normalize(); err != nil {
		fmt.Fprintf(os.Stderr, "corpusx: %v\n", err)
		return 2
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "corpusx: %v\n", err)
		return 2
	}

	logger := logx.NewWithLevel(logx.ParseLevel(cfg.LogLevel))
	if !cfg.Quiet {
		// El presenter ocupa el terminal; el log queda solo para errores.
		logger.SetLevel(logx.LevelError)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	descriptors, err := loadDescriptors(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "corpusx: %v\n", err)
		return 2
	}

	limiter := rate.New(cfg.RateLimitBytes(), 4*1024*1024)

	httpFetcher := fetch.NewHTTP(fetch.HTTPOptions{
		Client: &http.Client{
			Transport: &http.Transport{ResponseHeaderTimeout: cfg.HTTPTimeout},
		},
		Limiter: limiter,
		Logger:  logger,
	})

	mux := fetch.NewMux(httpFetcher)
	if hasGSDescriptors(descriptors) {
		gcs, err := fetch.NewGCS(ctx, limiter, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "corpusx: gcs client: %v\n", err)
			return 2
		}
		defer gcs.Close()
		mux = fetch.NewMux(gcs, httpFetcher)
	}

	store, err := state.NewFileStore(filepath.Join(cfg.DatasetRoot, ".corpusx", "state"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "corpusx: state store: %v\n", err)
		return 2
	}

	var presenter ui.Presenter = ui.NewNoopPresenter()
	if !cfg.Quiet && !cfg.CheckOnly {
		presenter = ui.NewPTermPresenter()
	}
	defer presenter.Close()

	var scheduler workerpool.Scheduler
	if cfg.Scheduler == "weighted" {
		scheduler = workerpool.NewWeightedScheduler()
	}

	orch, err := usecases.NewOrchestrator(usecases.Deps{
		Fetcher:   mux,
		Extractor: archive.NewTarGz(logger),
		Relocator: relocate.NewMover(logger),
		States:    store,
		Presenter: presenter,
		Logger:    logger,
	}, usecases.Options{
		DatasetRoot: cfg.DatasetRoot,
		Workers:     cfg.Workers,
		Force:       cfg.Force,
		CheckOnly:   cfg.CheckOnly,
		Scheduler:   scheduler,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "corpusx: %v\n", err)
		return 2
	}

	report, err := orch.Run(ctx, descriptors)
	if err != nil {
		fmt.Fprintf(os.Stderr, "corpusx: %v\n", err)
		return 2
	}

	if cfg.ReportPath != "" {
		if err := writeJSONReport(cfg.ReportPath, report); err != nil {
			fmt.Fprintf(os.Stderr, "corpusx: report: %v\n", err)
		}
	}

	if cfg.Quiet || cfg.CheckOnly {
		if err := output.NewTableWriter(os.Stdout).Write(report); err != nil {
			fmt.Fprintf(os.Stderr, "corpusx: %v\n", err)
		}
	}

	if cfg.CheckOnly {
		// Check mode informa; no condiciona el exit code.
		return 0
	}

	output.WriteFailureSummary(os.Stderr, report)
	return report.ExitCode()
}

// loadDescriptors resuelve de dónde vienen los datasets: manifest YAML
// explícito o el set builtin.
func loadDescriptors(cfg *config.Config) ([]domain.Descriptor, error) {
	if cfg.ManifestPath != "" {
		m, err := manifest.Load(cfg.ManifestPath)
		if err != nil {
			return nil, err
		}
		// El root del manifest gana solo si el flag quedó en default.
		if m.DatasetRoot != "" && !pflag.CommandLine.Changed("root") {
			abs, err := filepath.Abs(m.DatasetRoot)
			if err != nil {
				return nil, err
			}
			cfg.DatasetRoot = abs
		}
		return m.Datasets, nil
	}

	switch cfg.BuiltinSet {
	case "libritts-r":
		return manifest.LibriTTSR(), nil
	default:
		return nil, fmt.Errorf("unknown builtin set %q", cfg.BuiltinSet)
	}
}

func hasGSDescriptors(descriptors []domain.Descriptor) bool {
	for _, d := range descriptors {
		if strings.HasPrefix(d.URL, "gs://") {
			return true
		}
	}
	return false
}

func writeJSONReport(path string, report *domain.RunReport) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return output.NewJSONWriter(f).Write(report)
}
