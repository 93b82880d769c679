package driver

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adam-cain/auto-invoice/pkg/artifact"
	"github.com/adam-cain/auto-invoice/pkg/types"
)

// RunSummary is the record of one run written next to, not inside, the
// artifact root.
type RunSummary struct {
	RunID        string              `json:"run_id"`
	Task         string              `json:"task"`
	Vendor       string              `json:"vendor,omitempty"`
	Model        string              `json:"model"`
	Status       string              `json:"status"`
	Answer       string              `json:"answer,omitempty"`
	Error        string              `json:"error,omitempty"`
	StartTime    time.Time           `json:"start_time"`
	EndTime      time.Time           `json:"end_time"`
	Duration     time.Duration       `json:"duration"`
	Turns        int                 `json:"turns"`
	PromptTokens int                 `json:"prompt_tokens"`
	Artifacts    []artifact.Artifact `json:"artifacts"`
	Events       []types.RunEvent    `json:"events"`
}

// SummaryWriter writes run summaries.
type SummaryWriter struct {
	outputDir string
}

// NewSummaryWriter creates a writer for outputDir.
func NewSummaryWriter(outputDir string) *SummaryWriter {
	return &SummaryWriter{outputDir: outputDir}
}

// Dir returns the directory summaries are written to.
func (w *SummaryWriter) Dir() string {
	return w.outputDir
}

// WriteAll writes run.json and summary.md.
func (w *SummaryWriter) WriteAll(summary *RunSummary) error {
	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := w.WriteRunJSON(summary); err != nil {
		return err
	}
	return w.WriteSummaryMarkdown(summary)
}

// WriteRunJSON writes the full summary as JSON.
func (w *SummaryWriter) WriteRunJSON(summary *RunSummary) error {
	path := filepath.Join(w.outputDir, "run.json")

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run summary: %w", err)
	}
	if writeErr := os.WriteFile(path, data, 0600); writeErr != nil {
		return fmt.Errorf("failed to write run JSON: %w", writeErr)
	}
	return nil
}

// WriteSummaryMarkdown writes a human-readable summary.
func (w *SummaryWriter) WriteSummaryMarkdown(summary *RunSummary) error {
	path := filepath.Join(w.outputDir, "summary.md")

	var md strings.Builder
	md.WriteString("# Invoice Retrieval Summary\n\n")
	if summary.Vendor != "" {
		md.WriteString(fmt.Sprintf("**Vendor:** %s\n\n", summary.Vendor))
	}
	md.WriteString(fmt.Sprintf("**Run:** %s\n\n", summary.RunID))
	md.WriteString(fmt.Sprintf("**Model:** %s\n\n", summary.Model))
	md.WriteString(fmt.Sprintf("**Status:** %s\n\n", summary.Status))
	md.WriteString(fmt.Sprintf("**Started:** %s\n\n", summary.StartTime.Format(time.RFC3339)))
	md.WriteString(fmt.Sprintf("**Duration:** %s\n\n", summary.Duration))
	md.WriteString(fmt.Sprintf("**Turns:** %d\n\n", summary.Turns))

	md.WriteString("## Result\n\n")
	if summary.Error != "" {
		md.WriteString(fmt.Sprintf("**Error:** %s\n\n", summary.Error))
	}
	if summary.Answer != "" {
		md.WriteString(summary.Answer)
		md.WriteString("\n\n")
	}

	md.WriteString("## Artifacts\n\n")
	if len(summary.Artifacts) == 0 {
		md.WriteString("No invoices were saved.\n")
	}
	for _, a := range summary.Artifacts {
		md.WriteString(fmt.Sprintf("- `%s` (%s, %d bytes)\n", a.Path, a.Kind, a.Bytes))
	}

	if writeErr := os.WriteFile(path, []byte(md.String()), 0600); writeErr != nil {
		return fmt.Errorf("failed to write summary markdown: %w", writeErr)
	}
	return nil
}
