package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevelsArePrefixed(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf)

	l.Info("registered")
	l.Warnf("unknown drill %q", "JUGGLING")
	l.Error("boom")
	l.Event("INJURY_SUSTAINED", "P1", "ANKLE")

	out := buf.String()
	for _, want := range []string{
		"[KAIRO-INFO] registered",
		`[KAIRO-WARN] unknown drill "JUGGLING"`,
		"[KAIRO-ERROR] boom",
		"[EVENT:INJURY_SUSTAINED] Athlete:P1 | ANKLE",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output:\n%s", want, out)
		}
	}
}
