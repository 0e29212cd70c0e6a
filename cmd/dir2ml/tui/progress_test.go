package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jamesainslie/dir2ml/pkg/dir2ml/types"
)

func TestNewProgressModel(t *testing.T) {
	m := NewProgressModel("/srv/files", "1.0.0", nil)

	if m.rootPath != "/srv/files" {
		t.Errorf("expected root path '/srv/files', got %s", m.rootPath)
	}
	if m.IsDone() {
		t.Error("expected done to be false initially")
	}
	if m.Err() != nil {
		t.Error("expected err to be nil initially")
	}
	if m.Init() == nil {
		t.Error("expected Init to start the spinner")
	}
}

func TestProgressModelUpdate(t *testing.T) {
	m := NewProgressModel("/srv", "dev", nil)

	next, _ := m.Update(ProgressMsg{FilesHashed: 12, BytesHashed: 2048, CurrentPath: "a/b"})
	m = next.(ProgressModel)
	if m.progress.FilesHashed != 12 {
		t.Errorf("expected FilesHashed 12, got %d", m.progress.FilesHashed)
	}

	next, _ = m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = next.(ProgressModel)
	if m.width != 120 {
		t.Errorf("expected width 120, got %d", m.width)
	}

	next, cmd := m.Update(DoneMsg{})
	m = next.(ProgressModel)
	if !m.IsDone() || m.Err() != nil {
		t.Errorf("expected clean completion, got done=%v err=%v", m.IsDone(), m.Err())
	}
	if cmd == nil {
		t.Error("expected quit command on completion")
	}
}

func TestProgressModelDoneWithError(t *testing.T) {
	m := NewProgressModel("/srv", "dev", nil)
	boom := errors.New("boom")

	next, _ := m.Update(DoneMsg{Err: boom})
	m = next.(ProgressModel)
	if !errors.Is(m.Err(), boom) {
		t.Errorf("expected boom, got %v", m.Err())
	}
	if !strings.Contains(m.View(), "boom") {
		t.Error("expected error in view")
	}
}

func TestProgressModelInterrupt(t *testing.T) {
	cancelled := false
	m := NewProgressModel("/srv", "dev", func() { cancelled = true })

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = next.(ProgressModel)
	if !cancelled {
		t.Error("expected cancel to be called")
	}
	if !errors.Is(m.Err(), context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", m.Err())
	}
	if cmd == nil {
		t.Error("expected quit command")
	}
}

func TestProgressFraction(t *testing.T) {
	m := NewProgressModel("/srv", "dev", nil)
	if _, ok := m.fraction(); ok {
		t.Error("expected no fraction without totals")
	}

	m.progress = types.ScanProgress{BytesHashed: 50, TotalBytes: 200}
	frac, ok := m.fraction()
	if !ok || frac != 0.25 {
		t.Errorf("expected 0.25, got %v %v", frac, ok)
	}
	if !strings.Contains(m.renderProgressBar(60), "25%") {
		t.Error("expected percentage in determinate bar")
	}

	m.progress.BytesHashed = 400
	if frac, _ := m.fraction(); frac != 1 {
		t.Errorf("expected clamp to 1, got %v", frac)
	}
}

func TestProgressView(t *testing.T) {
	m := NewProgressModel("/srv/files", "1.2.3", nil)
	m.progress = types.ScanProgress{DirsVisited: 3, FilesHashed: 15, TotalFiles: 30, Merges: 2, Collisions: 1, CurrentPath: "x/y.bin"}

	view := m.View()
	for _, want := range []string{"dir2ml 1.2.3", "x/y.bin", "15/30", "Merged"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0:00"},
		{59 * time.Second, "0:59"},
		{61 * time.Second, "1:01"},
		{10 * time.Minute, "10:00"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestTruncatePath(t *testing.T) {
	if got := truncatePath("abcdefghij", 6); got != "...hij" {
		t.Errorf("truncatePath() = %q", got)
	}
	if got := truncatePath("abc", 6); got != "abc" {
		t.Errorf("truncatePath() = %q", got)
	}
}
