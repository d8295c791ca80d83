// Package pipeline drives the post-build synthesis run as an ordered list
// of stages over shared state. Stages never abort on single-item failures;
// only missing required inputs are fatal.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/dakhub/internal/config"
	"git.home.luguber.info/inful/dakhub/internal/htmlpatch"
	"git.home.luguber.info/inful/dakhub/internal/hub"
	"git.home.luguber.info/inful/dakhub/internal/openapi"
	"git.home.luguber.info/inful/dakhub/internal/qa"
	"git.home.luguber.info/inful/dakhub/internal/refdoc"
	"git.home.luguber.info/inful/dakhub/internal/scan"
)

// StageName is a strongly-typed identifier for a pipeline stage.
type StageName string

// Canonical stage names, in execution order.
const (
	StageMergeComponents StageName = "merge_component_reports"
	StageValidateOutput  StageName = "validate_output"
	StageDetectArtifacts StageName = "detect_artifacts"
	StageSynthesize      StageName = "synthesize_specs"
	StageBuildCatalogs   StageName = "build_catalogs"
	StageInjectRefDocs   StageName = "inject_reference_docs"
	StageAssembleHub     StageName = "assemble_hub"
)

// Stage is a discrete unit of work in the run.
type Stage func(ctx context.Context, st *State) error

// StageDef pairs a stage name with its executing function.
type StageDef struct {
	Name StageName
	Fn   Stage
}

// StageErrorKind enumerates structured stage error categories.
type StageErrorKind string

const (
	StageErrorFatal   StageErrorKind = "fatal"   // Run must abort.
	StageErrorWarning StageErrorKind = "warning" // Non-fatal; record and continue.
)

// StageError is a structured error carrying category and underlying cause.
type StageError struct {
	Kind  StageErrorKind
	Stage StageName
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s stage %s: %v", e.Kind, e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

func newFatalStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorFatal, Stage: stage, Err: err}
}

// State carries mutable state across stages.
type State struct {
	Cfg      *config.Config
	Reporter *qa.Reporter

	Detector    *scan.Detector
	Synthesizer *openapi.Synthesizer
	Injector    *htmlpatch.Injector
	Renderer    *refdoc.Renderer
	Assembler   *hub.Assembler

	Schemas        map[scan.Role][]string
	Vocabularies   []string
	GeneratedSpecs []string
	ExistingSpecs  []string

	SchemaDocs  map[scan.Role][]hub.Entry
	EnumDocs    []hub.EnumerationDoc
	APIDocs     []hub.APIDoc
	LegacyHTML  string
	HubInjected bool
}

// newState wires every component against the one shared reporter.
func newState(cfg *config.Config, reporter *qa.Reporter) *State {
	injector := htmlpatch.NewInjector(reporter, cfg.MinGrowth)
	return &State{
		Cfg:         cfg,
		Reporter:    reporter,
		Detector:    scan.NewDetector(reporter),
		Synthesizer: openapi.NewSynthesizer(reporter),
		Injector:    injector,
		Renderer:    refdoc.NewRenderer(reporter),
		Assembler:   hub.NewAssembler(reporter, injector, cfg.OutputDir, hub.DOMExtractor{}),
		Schemas:     map[scan.Role][]string{},
		SchemaDocs:  map[scan.Role][]hub.Entry{},
	}
}

// runStages executes stages in order, recording timing and stopping on the
// first fatal error.
func runStages(ctx context.Context, st *State, stages []StageDef) error {
	for _, stage := range stages {
		select {
		case <-ctx.Done():
			return newFatalStageError(stage.Name, ctx.Err())
		default:
		}

		t0 := time.Now()
		err := stage.Fn(ctx, st)
		dur := time.Since(t0)
		slog.Debug("Stage completed", "stage", string(stage.Name), "duration", dur)

		if err != nil {
			se, ok := err.(*StageError)
			if !ok {
				se = newFatalStageError(stage.Name, err)
			}
			st.Reporter.AddError(se.Error(), map[string]any{"stage": string(se.Stage)})
			if se.Kind == StageErrorFatal {
				return se
			}
			slog.Warn("Stage reported non-fatal error", "stage", string(stage.Name), "error", se.Err)
		}
	}
	return nil
}
