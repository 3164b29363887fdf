package sitransfer

import (
	"sync"
	"time"
)

// MockTimeProvider is a deterministic time provider for testing.
type MockTimeProvider struct {
	mu          sync.Mutex
	currentTime time.Time
}

// Now returns the mock time, advancing it by one second per call.
func (m *MockTimeProvider) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentTime = m.currentTime.Add(time.Second)
	return m.currentTime
}

// Since returns the duration since t.
func (m *MockTimeProvider) Since(t time.Time) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentTime.Sub(t)
}
