package driver

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adam-cain/auto-invoice/pkg/artifact"
	"github.com/adam-cain/auto-invoice/pkg/types"
)

func TestSummaryWriterWriteAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "runs", "abc")
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	summary := &RunSummary{
		RunID:     "abc",
		Task:      "get invoices",
		Vendor:    "Acme",
		Model:     "gpt-4o",
		Status:    StatusCompleted,
		Answer:    "Saved one invoice.",
		StartTime: start,
		EndTime:   start.Add(90 * time.Second),
		Duration:  90 * time.Second,
		Turns:     7,
		Artifacts: []artifact.Artifact{
			{Vendor: "Acme", Kind: artifact.KindFileDownload, Path: "invoices/Acme_20240301_100030.pdf", Bytes: 2048},
		},
		Events: []types.RunEvent{types.NewRunEvent(7, types.EventTypeFinished, "Saved one invoice.")},
	}

	require.NoError(t, NewSummaryWriter(dir).WriteAll(summary))

	md, err := os.ReadFile(filepath.Join(dir, "summary.md"))
	require.NoError(t, err)
	assert.Contains(t, string(md), "**Status:** completed")
	assert.Contains(t, string(md), "- `invoices/Acme_20240301_100030.pdf` (file-download, 2048 bytes)")

	raw, err := os.ReadFile(filepath.Join(dir, "run.json"))
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "abc", decoded["run_id"])
	assert.Len(t, decoded["artifacts"], 1)
}

func TestSummaryMarkdownWithoutArtifacts(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, NewSummaryWriter(dir).WriteAll(&RunSummary{Status: StatusFailed, Error: "login failed"}))

	md, err := os.ReadFile(filepath.Join(dir, "summary.md"))
	require.NoError(t, err)
	assert.Contains(t, string(md), "**Error:** login failed")
	assert.Contains(t, string(md), "No invoices were saved.")
}
