package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "json", "debug")
	logger.Debug().Str("lot_number", "AB12").Msg("scanned")

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected a JSON line, got %q: %v", buf.String(), err)
	}
	if line["service"] != "vaxhub" || line["lot_number"] != "AB12" || line["level"] != "debug" {
		t.Errorf("unexpected line %v", line)
	}
}

func TestNewWithWriter_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "TEXT", "info")
	logger.Info().Msg("ready")
	if strings.HasPrefix(buf.String(), "{") || !strings.Contains(buf.String(), "ready") {
		t.Errorf("expected console output, got %q", buf.String())
	}
}

func TestNewWithWriter_Level(t *testing.T) {
	tests := []struct {
		level   string
		debugOK bool
	}{
		{"debug", true},
		{"info", false},
		{"", false},
		{"loud", false},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		logger := NewWithWriter(&buf, "json", tt.level)
		logger.Debug().Msg("x")
		if (buf.Len() > 0) != tt.debugOK {
			t.Errorf("level %q: debug emitted = %v", tt.level, buf.Len() > 0)
		}
	}
}
