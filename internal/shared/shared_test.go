package shared

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

func TestLogger(t *testing.T) {
	t.Run("WithLogger adds fields", func(t *testing.T) {
		var buf bytes.Buffer
		logger := WithLogger(NewLogger(&buf), "session", "abc")

		logger.Info("refreshed")

		if !strings.Contains(buf.String(), "session=abc") {
			t.Errorf("expected session field in output, got %q", buf.String())
		}
	})

	t.Run("SetLogLevel filters", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf)
		SetLogLevel(logger, log.WarnLevel)

		logger.Info("hidden")

		if buf.Len() != 0 {
			t.Errorf("expected info to be filtered, got %q", buf.String())
		}
	})
}

func TestIDs(t *testing.T) {
	tc := []struct {
		name string
		in   string
		want string
	}{
		{name: "short id untouched", in: "abc", want: "abc"},
		{name: "exactly eight", in: "abcdefgh", want: "abcdefgh"},
		{name: "long id truncated", in: "0123456789abcdef", want: "01234567"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShortID(tt.in); got != tt.want {
				t.Errorf("ShortID() = %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("GenerateID", func(t *testing.T) {
		id := GenerateID()
		if _, err := uuid.Parse(id); err != nil {
			t.Errorf("expected a valid uuid, got %q: %v", id, err)
		}
		if id == GenerateID() {
			t.Error("expected unique ids")
		}
	})
}

func TestFormatHelpers(t *testing.T) {
	tc := []struct {
		ms   int
		want string
	}{
		{ms: 0, want: "0:00"},
		{ms: 61_500, want: "1:01"},
		{ms: 3_725_000, want: "1:02:05"},
		{ms: -5, want: "0:00"},
	}

	for _, tt := range tc {
		t.Run(tt.want, func(t *testing.T) {
			if got := FormatDuration(tt.ms); got != tt.want {
				t.Errorf("FormatDuration(%d) = %v, want %v", tt.ms, got, tt.want)
			}
		})
	}

	t.Run("VisibilityString", func(t *testing.T) {
		if VisibilityString(true) != "Public" || VisibilityString(false) != "Private" {
			t.Error("unexpected visibility strings")
		}
	})

	t.Run("MarshalJSON", func(t *testing.T) {
		compact, err := MarshalJSON(map[string]int{"a": 1}, false)
		if err != nil || string(compact) != `{"a":1}` {
			t.Errorf("unexpected compact output %s (%v)", compact, err)
		}

		pretty, err := MarshalJSON(map[string]int{"a": 1}, true)
		if err != nil || !strings.Contains(string(pretty), "\n  \"a\": 1") {
			t.Errorf("unexpected pretty output %s (%v)", pretty, err)
		}
	})
}
