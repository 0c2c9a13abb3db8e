package debug

import (
	"bytes"
	"strings"
	"testing"
)

func TestLog_WritesOnlyWhenEnabled(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetEnabled(false)

	Log("hidden %d", 1)
	if buf.Len() != 0 {
		t.Fatalf("expected no output while disabled, got %q", buf.String())
	}

	SetEnabled(true)
	defer SetEnabled(false)
	Log("visible %d", 2)
	LogIf(false, "skipped")
	if !strings.Contains(buf.String(), "visible 2") {
		t.Errorf("expected message in output, got %q", buf.String())
	}
	if strings.Contains(buf.String(), "skipped") {
		t.Errorf("LogIf(false) should not write, got %q", buf.String())
	}
}

func TestLogEnterExit_WritesBothEnds(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetEnabled(true)
	defer SetEnabled(false)

	LogEnterExit("rebuild")()
	out := buf.String()
	if !strings.Contains(out, "-> rebuild") || !strings.Contains(out, "<- rebuild") {
		t.Errorf("expected enter and exit lines, got %q", out)
	}
}
