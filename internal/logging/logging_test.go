package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNew_LevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	l, err := New("warn", &buf)
	if err != nil {
		t.Fatal(err)
	}
	if l.GetLevel() != logrus.WarnLevel {
		t.Fatalf("level: %v", l.GetLevel())
	}

	l.Info("hidden")
	l.WithField("table", "users").Warn("Failed to count rows")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info must be filtered at warn:\n%s", out)
	}
	if !strings.Contains(out, "level=warning") || !strings.Contains(out, "table=users") {
		t.Fatalf("unexpected text format:\n%s", out)
	}
}

func TestNew_BadLevel(t *testing.T) {
	if _, err := New("chatty", new(bytes.Buffer)); err == nil {
		t.Fatalf("expected error")
	}
}
