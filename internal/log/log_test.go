package log

import (
	"bytes"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type entry struct {
	level, msg string
	fields     map[string]interface{}
}

type recorder struct {
	mu      sync.Mutex
	entries []entry
}

func (r *recorder) add(level, msg string, fields map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry{level, msg, fields})
}

func (r *recorder) Debug(msg string, fields map[string]interface{})   { r.add("debug", msg, fields) }
func (r *recorder) Info(msg string, fields map[string]interface{})    { r.add("info", msg, fields) }
func (r *recorder) Warning(msg string, fields map[string]interface{}) { r.add("warning", msg, fields) }
func (r *recorder) SetLevel(string)                                   {}
func (r *recorder) SetLogWriter(io.Writer)                            {}

func TestSetLogger(t *testing.T) {
	prev := mLog
	defer SetLogger(prev)

	r := &recorder{}
	SetLogger(r)
	Warning("", nil)
	Info("", nil)
	Warning("skipping table", map[string]interface{}{KeyTable: "Feature"})
	Debug("decoded table", map[string]interface{}{KeyRows: 2})

	assert.Equal(t, []entry{
		{"warning", "skipping table", map[string]interface{}{KeyTable: "Feature"}},
		{"debug", "decoded table", map[string]interface{}{KeyRows: 2}},
	}, r.entries)
}

func TestSetLogWriter(t *testing.T) {
	var buf bytes.Buffer
	SetLogWriter(&buf)
	defer SetLogWriter(os.Stderr)
	SetLogLevel("info")
	defer SetLogLevel("warn")

	Info("stream written", map[string]interface{}{KeyPath: "out/Binary.Logo"})
	Debug("hidden", nil)
	assert.Contains(t, buf.String(), "stream written")
	assert.Contains(t, buf.String(), "path=out/Binary.Logo")
	assert.NotContains(t, buf.String(), "hidden")

	buf.Reset()
	SetLogLevel("")
	SetLogWriter(nil)
	Info("still info", nil)
	assert.Contains(t, buf.String(), "still info")
}
