package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestTextOutputContainsFields(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "text", false)

	Info("event accepted", KeySlot, uint64(5), KeyNodeID, uint32(2))

	out := buf.String()
	if !strings.Contains(out, "event accepted") {
		t.Errorf("output missing message: %q", out)
	}
	if !strings.Contains(out, "slot=5") || !strings.Contains(out, "node_id=2") {
		t.Errorf("output missing fields: %q", out)
	}
	if !strings.Contains(out, "[INFO]") {
		t.Errorf("output missing level: %q", out)
	}
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "json", false)

	Info("journal opened", KeyPath, "/tmp/j.dat")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if rec["msg"] != "journal opened" {
		t.Errorf("msg = %v", rec["msg"])
	}
	if rec["path"] != "/tmp/j.dat" {
		t.Errorf("path = %v", rec["path"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "WARN", "text", false)

	Debug("too quiet")
	Info("still too quiet")
	Warn("loud enough")

	out := buf.String()
	if strings.Contains(out, "too quiet") {
		t.Errorf("low-level messages not filtered: %q", out)
	}
	if !strings.Contains(out, "loud enough") {
		t.Errorf("warn message missing: %q", out)
	}
}

func TestSetLevelIgnoresInvalid(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "text", false)

	SetLevel("NONSENSE")
	Info("visible")

	if !strings.Contains(buf.String(), "visible") {
		t.Error("invalid SetLevel changed behavior")
	}
}

func TestErrHelper(t *testing.T) {
	if Err(nil) != nil {
		t.Error("Err(nil) should be nil")
	}
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "text", false)

	kv := Err(errTest{})
	Error("failed", kv...)
	if !strings.Contains(buf.String(), "error=boom") {
		t.Errorf("Err fields missing: %q", buf.String())
	}
}

type errTest struct{}

func (errTest) Error() string { return "boom" }
