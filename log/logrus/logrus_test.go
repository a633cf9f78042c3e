package logrus

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/unkn0wn-root/samplecache"
)

func TestLevelsAndFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "warn")

	l.Info("hidden", nil)
	l.Warn("replication miss", samplecache.Fields{"fp": "abc", "index": 3})
	l.Error("store error", samplecache.Fields{"err": errors.New("disk full")})

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info logged at warn level: %s", out)
	}
	for _, want := range []string{"replication miss", "fp=abc", "index=3", `error="disk full"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("output lacks %q:\n%s", want, out)
		}
	}
}

func TestUnknownLevelIsInfo(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "loud")
	l.Debug("d", nil)
	l.Info("i", nil)
	if strings.Contains(buf.String(), "msg=d") || !strings.Contains(buf.String(), "msg=i") {
		t.Fatalf("output:\n%s", buf.String())
	}
}
