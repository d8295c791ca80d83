// Package qa collects run telemetry and merges it into the IG publisher's
// own QA report. The Reporter is the only shared mutable object in the
// system; every component receives it by reference and its mutation methods
// are the sole write path to the persisted report.
package qa

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state recorded in a report.
type Status string

const (
	StatusRunning             Status = "running"
	StatusCompleted           Status = "completed"
	StatusCompletedWithErrors Status = "completed_with_errors"
	StatusFailed              Status = "failed"
)

// MergeKey is the namespaced sub-tree key added to the publisher's report.
const MergeKey = "dak_api_processing"

// Entry is a single timestamped log line in a report.
type Entry struct {
	Message   string         `json:"message"`
	Timestamp string         `json:"timestamp"`
	Details   map[string]any `json:"details,omitempty"`
}

// FileEntry records the processing status of a single file.
type FileEntry struct {
	File      string         `json:"file"`
	Status    string         `json:"status"`
	Timestamp string         `json:"timestamp"`
	Details   map[string]any `json:"details,omitempty"`
}

// Details holds the four append-only logs of a report.
type Details struct {
	Successes      []Entry     `json:"successes"`
	Warnings       []Entry     `json:"warnings"`
	Errors         []Entry     `json:"errors"`
	FilesProcessed []FileEntry `json:"files_processed"`
	FilesExpected  []string    `json:"files_expected"`
	FilesMissing   []string    `json:"files_missing"`
}

// Summary holds the derived counts computed at finalize time.
type Summary struct {
	TotalSuccesses      int    `json:"total_successes"`
	TotalWarnings       int    `json:"total_warnings"`
	TotalErrors         int    `json:"total_errors"`
	FilesProcessedCount int    `json:"files_processed_count"`
	FilesExpectedCount  int    `json:"files_expected_count"`
	FilesMissingCount   int    `json:"files_missing_count"`
	CompletionTimestamp string `json:"completion_timestamp"`
}

// Report is this run's own telemetry document.
type Report struct {
	Phase     string   `json:"phase"`
	RunID     string   `json:"run_id"`
	Timestamp string   `json:"timestamp"`
	Status    Status   `json:"status"`
	Summary   *Summary `json:"summary"`
	Details   Details  `json:"details"`
}

// Reporter accumulates typed status entries during a run and merges them
// into an externally supplied report at finalize time.
type Reporter struct {
	report     Report
	external   map[string]any
	components []map[string]any
	now        func() time.Time
}

// NewReporter creates a Reporter for the given phase.
func NewReporter(phase string) *Reporter {
	r := &Reporter{now: time.Now}
	r.report = Report{
		Phase:     phase,
		RunID:     uuid.NewString(),
		Timestamp: r.stamp(),
		Status:    StatusRunning,
		Details: Details{
			Successes:      []Entry{},
			Warnings:       []Entry{},
			Errors:         []Entry{},
			FilesProcessed: []FileEntry{},
			FilesExpected:  []string{},
			FilesMissing:   []string{},
		},
	}
	return r
}

func (r *Reporter) stamp() string { return r.now().Format(time.RFC3339) }

// LoadExternal loads the publisher's prior QA report to merge into. A missing
// or unreadable file is tolerated; the run then produces a standalone report.
func (r *Reporter) LoadExternal(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Info("No existing publisher QA file found", "path", path)
		return false
	}
	var external map[string]any
	if err := json.Unmarshal(data, &external); err != nil {
		slog.Warn("Failed to parse existing publisher QA file", "path", path, "error", err)
		return false
	}
	r.external = external
	slog.Info("Loaded existing publisher QA file", "path", path)
	return true
}

// AddSuccess appends a success entry.
func (r *Reporter) AddSuccess(message string, details map[string]any) {
	r.report.Details.Successes = append(r.report.Details.Successes, Entry{Message: message, Timestamp: r.stamp(), Details: details})
}

// AddWarning appends a warning entry.
func (r *Reporter) AddWarning(message string, details map[string]any) {
	r.report.Details.Warnings = append(r.report.Details.Warnings, Entry{Message: message, Timestamp: r.stamp(), Details: details})
}

// AddError appends an error entry.
func (r *Reporter) AddError(message string, details map[string]any) {
	r.report.Details.Errors = append(r.report.Details.Errors, Entry{Message: message, Timestamp: r.stamp(), Details: details})
}

// AddFileProcessed records a per-file processing status.
func (r *Reporter) AddFileProcessed(file, status string, details map[string]any) {
	r.report.Details.FilesProcessed = append(r.report.Details.FilesProcessed, FileEntry{File: file, Status: status, Timestamp: r.stamp(), Details: details})
}

// AddFileExpected records an expected file and, when absent, a missing one.
func (r *Reporter) AddFileExpected(file string, found bool) {
	r.report.Details.FilesExpected = append(r.report.Details.FilesExpected, file)
	if !found {
		r.report.Details.FilesMissing = append(r.report.Details.FilesMissing, file)
	}
}

// Counts returns the current success/warning/error totals.
func (r *Reporter) Counts() (successes, warnings, errors int) {
	d := r.report.Details
	return len(d.Successes), len(d.Warnings), len(d.Errors)
}

// MergeComponent stores a component-level QA report received from an earlier
// pipeline phase and folds its high-level entries into this run's logs,
// prefixed with the component's self-declared name.
func (r *Reporter) MergeComponent(component map[string]any) {
	r.components = append(r.components, component)

	name := componentName(component, "Unknown")
	details, _ := component["details"].(map[string]any)

	for _, s := range entryList(details, "successes") {
		r.AddSuccess(fmt.Sprintf("[%s] %s", name, stringField(s, "message")), mapField(s, "details"))
	}
	for _, w := range entryList(details, "warnings") {
		r.AddWarning(fmt.Sprintf("[%s] %s", name, stringField(w, "message")), mapField(w, "details"))
	}
	for _, e := range entryList(details, "errors") {
		r.AddError(fmt.Sprintf("[%s] %s", name, stringField(e, "message")), mapField(e, "details"))
	}
	for _, f := range entryList(details, "files_processed") {
		status := stringField(f, "status")
		if status == "" {
			status = "unknown"
		}
		r.AddFileProcessed(fmt.Sprintf("[%s] %s", name, stringField(f, "file")), status, mapField(f, "details"))
	}
}

// Finalize computes summary counts and returns the object to persist: the
// external report with the namespaced sub-tree added, or this run's own
// report when no external one was loaded.
func (r *Reporter) Finalize(status Status) any {
	r.report.Status = status
	r.report.Summary = &Summary{
		TotalSuccesses:      len(r.report.Details.Successes),
		TotalWarnings:       len(r.report.Details.Warnings),
		TotalErrors:         len(r.report.Details.Errors),
		FilesProcessedCount: len(r.report.Details.FilesProcessed),
		FilesExpectedCount:  len(r.report.Details.FilesExpected),
		FilesMissingCount:   len(r.report.Details.FilesMissing),
		CompletionTimestamp: r.stamp(),
	}

	if r.external == nil {
		return r.report
	}
	return r.mergeWithExternal()
}

// mergeWithExternal returns a copy of the external report with one added
// namespaced key; every top-level field of the external report is preserved.
func (r *Reporter) mergeWithExternal() map[string]any {
	merged := make(map[string]any, len(r.external)+1)
	for k, v := range r.external {
		merged[k] = v
	}

	componentReports := make(map[string]any, len(r.components))
	for i, rep := range r.components {
		componentReports[componentName(rep, fmt.Sprintf("component_%d", i))] = rep
	}

	merged[MergeKey] = map[string]any{
		"preprocessing_reports": componentReports,
		"postprocessing":        r.report,
		"summary": map[string]any{
			"total_dak_api_successes":      r.report.Summary.TotalSuccesses,
			"total_dak_api_warnings":       r.report.Summary.TotalWarnings,
			"total_dak_api_errors":         r.report.Summary.TotalErrors,
			"dak_api_completion_timestamp": r.report.Summary.CompletionTimestamp,
		},
	}
	return merged
}

// Save writes the payload as the run's durable record.
func (r *Reporter) Save(path string, payload any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create QA report directory: %w", err)
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode QA report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write QA report: %w", err)
	}
	return nil
}

func componentName(component map[string]any, fallback string) string {
	if name, ok := component["component"].(string); ok && name != "" {
		return name
	}
	if phase, ok := component["phase"].(string); ok && phase != "" {
		return phase
	}
	return fallback
}

func entryList(details map[string]any, key string) []map[string]any {
	raw, _ := details[key].([]any)
	entries := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			entries = append(entries, m)
		}
	}
	return entries
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func mapField(m map[string]any, key string) map[string]any {
	d, _ := m[key].(map[string]any)
	return d
}
