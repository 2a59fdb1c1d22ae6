package metrics

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	UsersRegistered  uint64
	Logins           map[string]uint64
	TokensRejected   map[string]uint64
	SecretOperations map[string]uint64
	DecryptFailures  uint64
	Requests         uint64
	RequestTotalNs   int64
	// Routes counts requests keyed by "METHOD route status".
	Routes map[string]uint64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	usersRegistered uint64
	decryptFailures uint64
	requests        uint64
	requestTotalNs  int64

	mu               sync.Mutex
	logins           map[string]uint64
	tokensRejected   map[string]uint64
	secretOperations map[string]uint64
	routes           map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		logins:           make(map[string]uint64),
		tokensRejected:   make(map[string]uint64),
		secretOperations: make(map[string]uint64),
		routes:           make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		UsersRegistered:  atomic.LoadUint64(&m.usersRegistered),
		Logins:           copyCounts(m.logins),
		TokensRejected:   copyCounts(m.tokensRejected),
		SecretOperations: copyCounts(m.secretOperations),
		DecryptFailures:  atomic.LoadUint64(&m.decryptFailures),
		Requests:         atomic.LoadUint64(&m.requests),
		RequestTotalNs:   atomic.LoadInt64(&m.requestTotalNs),
		Routes:           copyCounts(m.routes),
	}
}

// IncUserRegistered increments the registration counter.
func (m *InMemoryRecorder) IncUserRegistered() {
	atomic.AddUint64(&m.usersRegistered, 1)
}

// IncLogin increments the login counter for outcome.
func (m *InMemoryRecorder) IncLogin(outcome string) {
	m.inc(m.logins, outcome)
}

// IncTokenRejected increments the rejected token counter for reason.
func (m *InMemoryRecorder) IncTokenRejected(reason string) {
	m.inc(m.tokensRejected, reason)
}

// IncSecretOperation increments the vault operation counter for op.
func (m *InMemoryRecorder) IncSecretOperation(op string) {
	m.inc(m.secretOperations, op)
}

// IncDecryptFailure increments the decrypt failure counter.
func (m *InMemoryRecorder) IncDecryptFailure() {
	atomic.AddUint64(&m.decryptFailures, 1)
}

// ObserveRequest records request count and duration.
func (m *InMemoryRecorder) ObserveRequest(method, route string, status int, duration time.Duration) {
	atomic.AddUint64(&m.requests, 1)
	atomic.AddInt64(&m.requestTotalNs, duration.Nanoseconds())
	m.inc(m.routes, fmt.Sprintf("%s %s %d", method, route, status))
}

func (m *InMemoryRecorder) inc(counts map[string]uint64, label string) {
	m.mu.Lock()
	counts[label]++
	m.mu.Unlock()
}

func copyCounts(src map[string]uint64) map[string]uint64 {
	dst := make(map[string]uint64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
