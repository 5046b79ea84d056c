package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"

	"github.com/ganot/forge-registry/internal/registry"
	"github.com/ganot/forge-registry/internal/scan"
)

func TestPrintReport(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	printReport(&buf, scan.Report{
		StartedAt: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
		Duration:  1500 * time.Millisecond,
		FullReset: true,
		Tasks: []scan.TaskReport{
			{Task: scan.TaskRefresh, Outcome: scan.OutcomeRan, Changes: 2, Save: registry.OutcomeApplied},
			{Task: scan.TaskMentions, Outcome: scan.OutcomeFailed, Err: errors.New("feed down")},
			{Task: scan.TaskWebsite, Outcome: scan.OutcomeSkipped},
		},
	})

	out := buf.String()
	require.Contains(t, out, "full reset")
	require.Contains(t, out, "2 changes")
	require.Contains(t, out, "feed down")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Contains(t, lines[len(lines)-1], string(scan.OutcomeSkipped))
}

func TestCappedLogTrims(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "forge.log")
	l, err := openCappedLog(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	chunk := bytes.Repeat([]byte("x"), 1024*1024)
	for i := 0; i < 7; i++ {
		_, err := l.Write(chunk)
		require.NoError(t, err)
	}
	_, err = l.Write([]byte("tail\n"))
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.LessOrEqual(t, info.Size(), int64(maxLogBytes))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, bytes.HasSuffix(data, []byte("tail\n")))
}
