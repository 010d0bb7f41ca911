package progress

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestNewProgress(t *testing.T) {
	if NewProgress(false).quiet {
		t.Error("quiet should be false")
	}
	if !NewProgress(true).quiet {
		t.Error("quiet should be true")
	}
}

func TestProgress_Report(t *testing.T) {
	var buf bytes.Buffer
	progress := NewProgress(false)
	progress.SetOutput(&buf)

	progress.Report(Status{
		Elapsed:  65 * time.Second,
		Timeout:  20 * time.Second,
		Sent:     2,
		Steps:    3,
		Pending:  4,
		Arrivals: 1,
	})

	output := buf.String()
	if !strings.HasPrefix(output, "\r\033[K") {
		t.Errorf("expected line clear prefix, got %q", output)
	}
	if !strings.Contains(output, "[01:05/20s] Sent: 2/3 | Pending: 4 | Arrivals: 1") {
		t.Errorf("unexpected status line %q", output)
	}
	if strings.HasSuffix(output, "\n") {
		t.Error("status line should not end with newline")
	}
}

func TestProgress_ClearOnlyAfterReport(t *testing.T) {
	var buf bytes.Buffer
	progress := NewProgress(false)
	progress.SetOutput(&buf)

	progress.Clear()
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}

	progress.Report(Status{})
	buf.Reset()
	progress.Clear()
	if buf.String() != "\r\033[K" {
		t.Errorf("expected line clear, got %q", buf.String())
	}

	buf.Reset()
	progress.Clear()
	if buf.Len() != 0 {
		t.Errorf("second clear should be a no-op, got %q", buf.String())
	}
}

func TestProgress_Print(t *testing.T) {
	var buf bytes.Buffer
	progress := NewProgress(false)
	progress.SetOutput(&buf)

	progress.Print("daemon started (pid 42)")

	output := buf.String()
	if !strings.Contains(output, "\033[K") {
		t.Error("expected output to contain line clear escape sequence")
	}
	if !strings.HasSuffix(output, "daemon started (pid 42)\n") {
		t.Errorf("expected message with newline, got: %q", output)
	}
}

func TestProgress_Printf(t *testing.T) {
	var buf bytes.Buffer
	progress := NewProgress(false)
	progress.SetOutput(&buf)

	progress.Printf("Scenario: %s (%d steps)", "counters", 3)

	if !strings.Contains(buf.String(), "Scenario: counters (3 steps)\n") {
		t.Errorf("expected formatted message, got: %q", buf.String())
	}
}

func TestProgress_QuietModeDoesNotPrint(t *testing.T) {
	var buf bytes.Buffer
	progress := NewProgress(true)
	progress.SetOutput(&buf)

	progress.Print("message")
	progress.Report(Status{Steps: 1})
	progress.Clear()

	if buf.Len() != 0 {
		t.Errorf("expected no output in quiet mode, got: %q", buf.String())
	}
}
