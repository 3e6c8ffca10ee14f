package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

// Entry is one decoded JSON log line.
type Entry map[string]any

// Message returns the entry's message field.
func (e Entry) Message() string {
	msg, _ := e[zerolog.MessageFieldName].(string)
	return msg
}

// Level returns the entry's level field.
func (e Entry) Level() string {
	level, _ := e[zerolog.LevelFieldName].(string)
	return level
}

// Recorder captures trace-level JSON logs for assertions. Writes are
// serialized, so pipelines logging from several goroutines are safe.
type Recorder struct {
	Logger *zerolog.Logger

	t   testing.TB
	mu  sync.Mutex
	buf bytes.Buffer
}

// NewRecorder creates a recorder whose Logger can be put in a context with
// WithLogger. The global level is lowered to trace until the test ends.
func NewRecorder(t testing.TB) *Recorder {
	t.Helper()

	oldLevel := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	t.Cleanup(func() { zerolog.SetGlobalLevel(oldLevel) })

	r := &Recorder{t: t}
	logger := zerolog.New(r).Level(zerolog.TraceLevel).With().Timestamp().Logger()
	r.Logger = &logger
	return r
}

// Capture installs a recorder as the default logger until the test ends.
func Capture(t testing.TB) *Recorder {
	t.Helper()

	original := *Default()
	r := NewRecorder(t)
	SetDefault(*r.Logger)
	t.Cleanup(func() { SetDefault(original) })
	return r
}

// Write implements io.Writer.
func (r *Recorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.Write(p)
}

// Entries decodes every captured line. A line that is not JSON fails the test.
func (r *Recorder) Entries() []Entry {
	r.t.Helper()
	r.mu.Lock()
	data := bytes.Clone(r.buf.Bytes())
	r.mu.Unlock()

	var entries []Entry
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			r.t.Fatalf("log line is not JSON: %v\n%s", err, scanner.Text())
		}
		entries = append(entries, e)
	}
	return entries
}

// Find returns the first entry with the given message.
func (r *Recorder) Find(msg string) (Entry, bool) {
	r.t.Helper()
	for _, e := range r.Entries() {
		if e.Message() == msg {
			return e, true
		}
	}
	return nil, false
}

// Reset drops everything captured so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf.Reset()
}

// AssertLogged fails the test unless an entry has the given message.
func (r *Recorder) AssertLogged(msg string) Entry {
	r.t.Helper()
	e, ok := r.Find(msg)
	if !ok {
		r.t.Errorf("no log entry with message %q\n%s", msg, r.dump())
	}
	return e
}

// AssertNotLogged fails the test if an entry has the given message.
func (r *Recorder) AssertNotLogged(msg string) {
	r.t.Helper()
	if _, ok := r.Find(msg); ok {
		r.t.Errorf("unexpected log entry with message %q\n%s", msg, r.dump())
	}
}

// AssertField fails the test unless some entry carries key with a value
// printing the same as want. JSON numbers decode as float64, so 3 matches 3.
func (r *Recorder) AssertField(key string, want any) {
	r.t.Helper()
	for _, e := range r.Entries() {
		if v, ok := e[key]; ok && fmt.Sprint(v) == fmt.Sprint(want) {
			return
		}
	}
	r.t.Errorf("no log entry with %s=%v\n%s", key, want, r.dump())
}

func (r *Recorder) dump() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.String()
}
