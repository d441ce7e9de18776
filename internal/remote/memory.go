package remote

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// Stage selects where an injected write fault fires.
type Stage int

const (
	// StageSubmit fails Set itself, before any confirmation exists.
	StageSubmit Stage = iota
	// StageConfirm lets Set succeed and fails the confirmation.
	StageConfirm
)

// Fault describes one injected write failure.
type Fault struct {
	Cause Cause
	Stage Stage
}

// AppliedWrite is one entry of the memory store's write log.
type AppliedWrite struct {
	Seq   int64
	Key   string
	Value []byte
}

// Memory is an in-memory Store with fault injection.
//
// Writes are applied when their confirmation resolves, after Latency.
// Thread-safety: all methods are safe for concurrent use.
type Memory struct {
	mu        sync.Mutex
	data      map[string][]byte
	available bool
	latency   time.Duration
	faults    map[string][]Fault
	prefixes  map[string]Fault
	readErrs  map[string]error
	log       []AppliedWrite
	seq       int64
}

// MemoryOption configures a Memory store.
type MemoryOption func(*Memory)

// WithLatency delays every confirmation by d.
func WithLatency(d time.Duration) MemoryOption {
	return func(m *Memory) {
		m.latency = d
	}
}

// NewMemory creates an empty, available in-memory store.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		data:      make(map[string][]byte),
		available: true,
		faults:    make(map[string][]Fault),
		prefixes:  make(map[string]Fault),
		readErrs:  make(map[string]error),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetAvailable toggles the result of Probe.
func (m *Memory) SetAvailable(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.available = ok
}

// FailNextSet queues a fault for the next write to key.
// Multiple calls queue faults in order.
func (m *Memory) FailNextSet(key string, f Fault) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faults[key] = append(m.faults[key], f)
}

// FailSetsWithPrefix fails every write to keys starting with prefix until
// ClearFaults is called.
func (m *Memory) FailSetsWithPrefix(prefix string, f Fault) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefixes[prefix] = f
}

// FailNextGet makes the next Get of key return err.
func (m *Memory) FailNextGet(key string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErrs[key] = err
}

// ClearFaults removes all injected faults.
func (m *Memory) ClearFaults() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faults = make(map[string][]Fault)
	m.prefixes = make(map[string]Fault)
	m.readErrs = make(map[string]error)
}

// Put writes key directly, bypassing confirmation and faults.
// Used to seed fixtures such as malformed blobs.
func (m *Memory) Put(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
}

// Keys returns every stored key with the given prefix.
func (m *Memory) Keys(prefix string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys
}

// Writes returns a copy of the applied-write log in application order.
func (m *Memory) Writes() []AppliedWrite {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]AppliedWrite, len(m.log))
	copy(out, m.log)
	return out
}

// Probe implements Store.
func (m *Memory) Probe(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.available, nil
}

// Get implements Store.
func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.readErrs[key]; ok {
		delete(m.readErrs, key)
		return nil, err
	}
	if !m.available {
		return nil, ErrUnavailable
	}
	v, ok := m.data[key]
	if !ok {
		return []byte{}, nil
	}
	return append([]byte(nil), v...), nil
}

// Set implements Store.
func (m *Memory) Set(ctx context.Context, key string, value []byte) (Confirmation, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewWriteError(key, CauseNetwork, err)
	}

	m.mu.Lock()
	fault, faulty := m.nextFaultLocked(key)
	if !m.available && !faulty {
		fault, faulty = Fault{Cause: CauseNetwork, Stage: StageSubmit}, true
	}
	latency := m.latency
	m.mu.Unlock()

	if faulty && fault.Stage == StageSubmit {
		return nil, NewWriteError(key, fault.Cause, errors.New("injected fault"))
	}

	value = append([]byte(nil), value...)
	p := NewPending(key)
	apply := func() {
		if faulty {
			p.Resolve(NewWriteError(key, fault.Cause, errors.New("injected fault")))
			return
		}
		m.mu.Lock()
		m.seq++
		m.data[key] = value
		m.log = append(m.log, AppliedWrite{Seq: m.seq, Key: key, Value: value})
		m.mu.Unlock()
		p.Resolve(nil)
	}

	if latency > 0 {
		time.AfterFunc(latency, apply)
	} else {
		apply()
	}
	return p, nil
}

// nextFaultLocked pops the next queued fault for key, if any.
// Callers must hold m.mu.
func (m *Memory) nextFaultLocked(key string) (Fault, bool) {
	if queued := m.faults[key]; len(queued) > 0 {
		f := queued[0]
		if len(queued) == 1 {
			delete(m.faults, key)
		} else {
			m.faults[key] = queued[1:]
		}
		return f, true
	}
	for prefix, f := range m.prefixes {
		if strings.HasPrefix(key, prefix) {
			return f, true
		}
	}
	return Fault{}, false
}
