package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New("debug", "", &buf)
	if logger.GetLevel() != logrus.DebugLevel {
		t.Fatalf("expected debug level, got %s", logger.GetLevel())
	}

	logger.WithField("component", "bootstrap").Info("service starting")
	line := buf.String()
	if !strings.Contains(line, "level=info") || !strings.Contains(line, "component=bootstrap") || !strings.Contains(line, `msg="service starting"`) {
		t.Fatalf("expected a logfmt line, got %q", line)
	}
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New("warn", "JSON", &buf)

	logger.Info("dropped")
	logger.WithField("troop_id", "t1").Warn("drift")

	var entry map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected a single JSON line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "drift" || entry["troop_id"] != "t1" || entry["level"] != "warning" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	if got := New("loud", "text", nil).GetLevel(); got != logrus.InfoLevel {
		t.Fatalf("expected info, got %s", got)
	}
}
