package core

import (
	"strings"
	"sync"
)

// MockWriter is a thread-safe io.Writer for testing. It stands in for the
// daemon's stdout and for report output.
type MockWriter struct {
	mu   sync.Mutex
	data []byte
}

func (w *MockWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.data = append(w.data, p...)
	return len(p), nil
}

func (w *MockWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return string(w.data)
}

// Lines returns the complete lines written so far.
func (w *MockWriter) Lines() []string {
	s := w.String()
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.Split(s[:i], "\n")
	}
	return nil
}

func (w *MockWriter) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.data = nil
}
