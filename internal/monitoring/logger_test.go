package monitoring

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestSetLogger(t *testing.T) {
	defer Reset()

	var got string
	SetLogger(func(format string, v ...interface{}) { got = format })
	Logf("timeout on command %d", 105)
	if got != "timeout on command %d" {
		t.Errorf("custom logger not called, got %q", got)
	}

	// nil installs a no-op, not a nil function
	SetLogger(nil)
	if Logf == nil {
		t.Fatal("Logf is nil after SetLogger(nil)")
	}
	got = ""
	Logf("should go nowhere")
	if got != "" {
		t.Errorf("no-op logger leaked a call: %q", got)
	}
}

func TestDefaultLoggerPrefix(t *testing.T) {
	defer Reset()
	var buf bytes.Buffer
	defaultLogger.SetOutput(&buf)
	defer defaultLogger.SetOutput(os.Stderr)

	Reset()
	Logf("timeout on command %d", 105)
	if !strings.Contains(buf.String(), "sf40: ") {
		t.Errorf("default logger missing prefix: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "timeout on command 105") {
		t.Errorf("default logger dropped the message: %q", buf.String())
	}
}
