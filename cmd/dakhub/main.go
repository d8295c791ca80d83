package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/dakhub/internal/config"
	"git.home.luguber.info/inful/dakhub/internal/pipeline"
	"git.home.luguber.info/inful/dakhub/internal/qa"
	"git.home.luguber.info/inful/dakhub/internal/scan"
)

// pauseEnv gates an interactive pause before exit for manual inspection of
// the output tree. It never affects exit-code semantics.
const pauseEnv = "DEBUG_PAUSE"

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"dakhub.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Generate struct {
		IGRoot     string `arg:"" optional:"" help:"Implementation guide root directory" default:"."`
		Output     string `short:"o" help:"Publisher output directory (defaults to <ig-root>/output)"`
		OpenAPIDir string `help:"Directory of pre-existing OpenAPI files (defaults to <ig-root>/input/images/openapi)"`
	} `cmd:"" default:"withargs" help:"Synthesize API docs and inject the hub into the rendered site"`

	Scan struct {
		Dir string `arg:"" help:"Schema directory to classify"`
	} `cmd:"" help:"Classify schema artifacts without synthesizing or patching"`
}

func main() {
	ctx := kong.Parse(&CLI)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	switch ctx.Command() {
	case "generate", "generate <ig-root>":
		cfg, err := config.Load(CLI.Config)
		if err != nil {
			slog.Error("Failed to load configuration", "error", err)
			os.Exit(1)
		}
		if err := runGenerate(cfg); err != nil {
			slog.Error("Generation failed", "error", err)
			pauseIfRequested()
			os.Exit(1)
		}
		pauseIfRequested()
		slog.Info("Exiting with success code 0 - check qa.json for detailed status")
	case "scan <dir>":
		runScan(CLI.Scan.Dir)
	}
}

func runGenerate(cfg *config.Config) error {
	// An explicit ig-root argument re-roots the derived directory layout.
	if CLI.Generate.IGRoot != "." && CLI.Generate.IGRoot != cfg.IGRoot {
		cfg.IGRoot = CLI.Generate.IGRoot
		cfg.OutputDir = ""
		cfg.OpenAPIDir = ""
	}
	if CLI.Generate.Output != "" {
		cfg.OutputDir = CLI.Generate.Output
	}
	if CLI.Generate.OpenAPIDir != "" {
		cfg.OpenAPIDir = CLI.Generate.OpenAPIDir
	}
	cfg.ApplyDefaults()

	slog.Info("Starting DAK API hub generation",
		"ig_root", cfg.IGRoot,
		"output", cfg.OutputDir,
		"openapi_dir", cfg.OpenAPIDir)

	reporter := qa.NewReporter("postprocessing")
	return pipeline.Run(context.Background(), cfg, reporter)
}

func runScan(dir string) {
	reporter := qa.NewReporter("scan")
	detector := scan.NewDetector(reporter)

	schemas := detector.FindSchemaFiles(dir)
	for _, role := range []scan.Role{scan.RoleValueSet, scan.RoleLogicalModel, scan.RoleOther} {
		for _, path := range schemas[role] {
			fmt.Printf("%-14s %s\n", role, path)
		}
	}
	for _, path := range detector.FindVocabularyFiles(dir) {
		fmt.Printf("%-14s %s\n", "vocabulary", path)
	}
}

func pauseIfRequested() {
	if os.Getenv(pauseEnv) == "" {
		return
	}
	slog.Info("Pause requested - inspect the output tree, then press ENTER to continue", "env", pauseEnv)
	_, _ = bufio.NewReader(os.Stdin).ReadString('\n')
}
