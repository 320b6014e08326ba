// package testing contains shared testing utilities
package testing

import (
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"
)

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

// ScriptedConn replays frames in order, then returns End (io.EOF when nil).
//
// It satisfies the progress connection interface of the services package.
// When Hold is set, Next blocks after the last frame until Close is called.
type ScriptedConn struct {
	Frames [][]byte
	End    error
	Hold   bool

	mu     sync.Mutex
	pos    int
	closes int
	closed chan struct{}
}

// NewScriptedConn builds a [ScriptedConn] from string frames.
func NewScriptedConn(end error, frames ...string) *ScriptedConn {
	c := &ScriptedConn{End: end, closed: make(chan struct{})}
	for _, f := range frames {
		c.Frames = append(c.Frames, []byte(f))
	}
	return c
}

func (c *ScriptedConn) Next() ([]byte, error) {
	c.mu.Lock()
	if c.closes > 0 {
		c.mu.Unlock()
		return nil, io.EOF
	}
	if c.pos < len(c.Frames) {
		f := c.Frames[c.pos]
		c.pos++
		c.mu.Unlock()
		return f, nil
	}
	hold := c.Hold
	c.mu.Unlock()

	if hold {
		<-c.closed
		return nil, io.EOF
	}
	if c.End != nil {
		return nil, c.End
	}
	return nil, io.EOF
}

func (c *ScriptedConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closes == 0 && c.closed != nil {
		close(c.closed)
	}
	c.closes++
	return nil
}

// Consumed returns how many frames have been read.
func (c *ScriptedConn) Consumed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pos
}

// Closes returns how many times Close was called.
func (c *ScriptedConn) Closes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes
}

// WaitFor polls cond until it holds or the timeout elapses.
func WaitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
