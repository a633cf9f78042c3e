package slog

import (
	"bytes"
	"strings"
	"testing"

	"github.com/unkn0wn-root/samplecache"
)

func TestSortedAttrs(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "debug")
	l.Info("slice copied", samplecache.Fields{"from": 2, "count": 1, "fp": "abc"})
	out := buf.String()
	i, j, k := strings.Index(out, "count="), strings.Index(out, "fp="), strings.Index(out, "from=")
	if i < 0 || !(i < j && j < k) {
		t.Fatalf("attrs not in key order: %s", out)
	}
}

func TestLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "warn")
	l.Info("quiet", nil)
	l.Warn("loud", nil)
	if strings.Contains(buf.String(), "quiet") || !strings.Contains(buf.String(), "loud") {
		t.Fatalf("output: %s", buf.String())
	}
}
