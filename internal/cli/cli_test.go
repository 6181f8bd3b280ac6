package cli

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"huntmover/internal/geom"
	"huntmover/internal/huntconfig"
	"huntmover/internal/runpipeline"
)

func testRoot(t *testing.T) *Root {
	t.Helper()
	c, err := huntconfig.Load()
	if err != nil {
		t.Fatalf("unexpected error loading default config: %v", err)
	}
	log := slog.New(slog.NewTextHandler(new(bytes.Buffer), nil))
	pipe := runpipeline.New(context.Background(), 1, log, nil, geom.NewCache())
	t.Cleanup(pipe.Stop)
	return NewRoot(c, log, nil, pipe)
}

func TestSimulateCommandPrintsCompletionSummary(t *testing.T) {
	root := testRoot(t)
	cmd := NewRootCmd(root)
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"simulate", "--frames-per-group", "3"})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := cmd.ExecuteContext(ctx); err != nil {
		t.Fatalf("simulate command failed: %v", err)
	}
	if !strings.Contains(out.String(), "complete:") {
		t.Fatalf("expected completion summary in output, got %q", out.String())
	}
}

func TestRunCommandRejectsWrongGroupCount(t *testing.T) {
	root := testRoot(t)
	cmd := NewRootCmd(root)
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"run", t.TempDir(), "--groups", "a,b"})

	if err := cmd.ExecuteContext(context.Background()); err == nil {
		t.Fatalf("expected an error for a --groups count other than three")
	}
}

func TestConfigShowPrintsJSON(t *testing.T) {
	root := testRoot(t)
	cmd := NewRootCmd(root)
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"config", "show"})

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	if !strings.Contains(out.String(), "\"sweep\"") {
		t.Fatalf("expected sweep section in config output, got %q", out.String())
	}
}

func TestVersionCommandPrints(t *testing.T) {
	root := testRoot(t)
	cmd := NewRootCmd(root)
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs([]string{"version"})

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if strings.TrimSpace(out.String()) == "" {
		t.Fatalf("expected version output")
	}
}
