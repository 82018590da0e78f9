// Package testing provides test utilities for arrayio testing.
package testing

import (
	"errors"
	"sort"
	"sync"
)

// ReadCall records a single ReadAt invocation.
type ReadCall struct {
	Offset int64
	Length int
}

// MockReaderAt is a mock implementation of io.ReaderAt for testing.
// It records every call and is safe for concurrent use.
type MockReaderAt struct {
	data []byte

	mu    sync.Mutex
	calls []ReadCall
	fail  map[int64]error
}

// NewMockReaderAt creates a new mock reader with the given data.
func NewMockReaderAt(data []byte) *MockReaderAt {
	return &MockReaderAt{data: data}
}

// FailAt makes reads starting at off return err.
func (m *MockReaderAt) FailAt(off int64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail == nil {
		m.fail = make(map[int64]error)
	}
	m.fail[off] = err
}

// ReadAt implements io.ReaderAt interface for the mock reader.
func (m *MockReaderAt) ReadAt(p []byte, off int64) (n int, err error) {
	m.mu.Lock()
	m.calls = append(m.calls, ReadCall{Offset: off, Length: len(p)})
	failErr := m.fail[off]
	m.mu.Unlock()

	if failErr != nil {
		return 0, failErr
	}

	if off < 0 {
		return 0, errors.New("negative offset")
	}

	if off >= int64(len(m.data)) {
		return 0, errors.New("offset beyond EOF")
	}

	n = copy(p, m.data[off:])
	if n < len(p) {
		err = errors.New("short read")
	}
	return
}

// Calls returns the recorded reads ordered by offset.
func (m *MockReaderAt) Calls() []ReadCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]ReadCall, len(m.calls))
	copy(calls, m.calls)
	sort.Slice(calls, func(i, j int) bool { return calls[i].Offset < calls[j].Offset })
	return calls
}

// CallCount returns the number of ReadAt invocations so far.
func (m *MockReaderAt) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
