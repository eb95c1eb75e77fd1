package logx

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"pkt.systems/pslog"
	"pkt.systems/webshell/schema"
)

func TestWithURLAddsField(t *testing.T) {
	capture := &logCapture{}
	logger := newCaptureLogger(capture)
	log := WithURL(logger, "https://example.com")
	log.Info("hello")

	entry := capture.firstEntry(t)
	if entry["url"] != "https://example.com" {
		t.Fatalf("expected url field, got %+v", entry)
	}
}

func TestWithURLSkipsEmpty(t *testing.T) {
	capture := &logCapture{}
	logger := newCaptureLogger(capture)
	WithURL(logger, "").Info("hello")

	entry := capture.firstEntry(t)
	if _, ok := entry["url"]; ok {
		t.Fatalf("did not expect url field, got %+v", entry)
	}
}

func TestWithTabAddsField(t *testing.T) {
	capture := &logCapture{}
	logger := newCaptureLogger(capture)
	ctx := pslog.ContextWithLogger(context.Background(), logger)
	WithTab(ctx, "tab-1").Info("hello")

	entry := capture.firstEntry(t)
	if entry["tab"] != "tab-1" {
		t.Fatalf("expected tab field, got %+v", entry)
	}
}

func TestWithTabDeduplicatesMarkedContext(t *testing.T) {
	capture := &logCapture{}
	logger := newCaptureLogger(capture)
	ctx := ContextWithTabLogger(context.Background(), logger.With("tab", schema.TabID("tab-1")), "tab-1")
	WithTab(ctx, "tab-1").Info("hello")

	line := capture.buf.String()
	if bytes.Count([]byte(line), []byte(`"tab"`)) != 1 {
		t.Fatalf("expected a single tab field, got %s", line)
	}
}

func TestCopyContextFields(t *testing.T) {
	src := ContextWithTab(context.Background(), "tab-9")
	dst := CopyContextFields(context.Background(), src)
	if got, _ := dst.Value(tabKey).(schema.TabID); got != "tab-9" {
		t.Fatalf("expected tab marker to be copied, got %q", got)
	}
}

func newCaptureLogger(capture *logCapture) pslog.Logger {
	return pslog.NewWithOptions(capture, pslog.Options{
		Mode:          pslog.ModeStructured,
		NoColor:       true,
		MinLevel:      pslog.InfoLevel,
		VerboseFields: true,
	})
}

type logCapture struct {
	buf bytes.Buffer
}

func (c *logCapture) Write(p []byte) (int, error) {
	return c.buf.Write(p)
}

func (c *logCapture) firstEntry(t *testing.T) map[string]any {
	t.Helper()
	data := c.buf.Bytes()
	idx := bytes.IndexByte(data, '\n')
	if idx == -1 {
		idx = len(data)
	}
	line := bytes.TrimSpace(data[:idx])
	entry := map[string]any{}
	if err := json.Unmarshal(line, &entry); err != nil {
		t.Fatalf("parse log entry: %v", err)
	}
	return entry
}
