package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/alexhholmes/pdugen/internal/analyzer"
	"github.com/alexhholmes/pdugen/internal/codegen"
	"github.com/alexhholmes/pdugen/internal/config"
	"github.com/alexhholmes/pdugen/internal/parser"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const defaultConfigPath = "pdugen.toml"

func main() {
	configPath := flag.String("config", "", "path to TOML config (default ./pdugen.toml if present)")
	input := flag.String("input", "", "PDU description XML, overrides config input")
	output := flag.String("output", "", "output directory, overrides config output")
	clean := flag.Bool("clean", false, "delete stale files in backend directories first")
	verbose := flag.Bool("v", false, "development logging at debug level")
	initPath := flag.String("init", "", "write a starter config to this path and exit")
	flag.Parse()

	if *initPath != "" {
		if err := config.WriteTemplate(*initPath, false); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote config template to %s\n", *initPath)
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if *input != "" {
		cfg.Input = *input
	}
	if *output != "" {
		cfg.Output = *output
	}
	if *clean {
		cfg.Clean = true
	}
	if cfg.Input == "" {
		fmt.Fprintf(os.Stderr, "usage: %s [-config pdugen.toml] -input <file.xml> [-output dir] [-clean]\n", os.Args[0])
		os.Exit(1)
	}

	log, err := newLogger(cfg.LogLevel, *verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	analyzer.SetLogger(log.Named("analyzer"))
	codegen.SetLogger(log.Named("codegen"))

	if err := run(cfg, log); err != nil {
		for _, e := range multierr.Errors(err) {
			log.Error("generation failed", zap.Error(e))
		}
		log.Sync()
		os.Exit(1)
	}
}

// loadConfig reads an explicit path, falls back to ./pdugen.toml, then defaults
func loadConfig(path string) (config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	if _, err := os.Stat(defaultConfigPath); err == nil {
		return config.Load(defaultConfigPath)
	}
	return config.Default(), nil
}

func newLogger(level string, verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	zc.Level = lvl
	zc.Encoding = "console"
	return zc.Build()
}

func run(cfg config.Config, log *zap.Logger) error {
	reg, err := parser.ParseFile(cfg.Input)
	if err != nil {
		return err
	}
	if err := reg.Seal(); err != nil {
		return err
	}
	log.Info("loaded classes", zap.String("input", cfg.Input), zap.Int("classes", reg.Len()))

	prog, err := analyzer.PlanAll(reg, analyzer.Options{PrimitiveDynamicLists: cfg.PrimitiveDynamicLists})
	if err != nil {
		return err
	}

	targets := make([]codegen.Target, 0, len(cfg.Backends))
	for _, b := range cfg.Backends {
		backend, err := codegen.NewBackend(b.Name, codegen.BackendOptions{Package: b.Package})
		if err != nil {
			return err
		}
		targets = append(targets, codegen.Target{Backend: backend, Dir: b.Dir})
	}

	gen := codegen.NewGenerator(prog, codegen.Options{
		OutDir:  cfg.Output,
		Clean:   cfg.Clean,
		Workers: cfg.Workers,
	}, targets...)
	report, err := gen.Generate()
	if report != nil {
		fmt.Printf("Wrote %d files to %s\n", len(report.Files), cfg.Output)
		if len(report.Failed) > 0 {
			fmt.Printf("Failed: %v\n", report.Failed)
		}
	}
	return err
}
