package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs generates record ids "<prefix>-1", "<prefix>-2", ...
//
// Unlike repository.FixedGenerator it never runs out, which suits scenario
// runs of unknown length. Same prefix, same sequence: golden traces stay
// byte-identical across runs.
//
// Thread-safety: safe for concurrent use.
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDs creates a generator. An empty prefix means "note".
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "note"
	}
	return &SequentialIDs{prefix: prefix}
}

// Generate returns the next id.
func (g *SequentialIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
