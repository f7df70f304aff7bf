package cst

import (
	"sync"

	"golang.org/x/crypto/blake2b"
)

// Interner deduplicates token text slices behind a content-addressed
// cache (blake2b-128 digests as map keys). It is safe
// for concurrent use; each ParseOracle owns one Interner, shared by every
// parse that oracle runs. There is no process-wide instance.
type Interner struct {
	mu    sync.RWMutex
	store map[[16]byte]string
}

// NewInterner returns an empty Interner.
func NewInterner() *Interner {
	return &Interner{store: make(map[[16]byte]string)}
}

// Intern returns the canonical copy of s, inserting s as the canonical copy
// if this is the first time it has been seen.
func (in *Interner) Intern(s string) string {
	if s == "" {
		return ""
	}
	key := digest(s)

	in.mu.RLock()
	if v, ok := in.store[key]; ok {
		in.mu.RUnlock()
		return v
	}
	in.mu.RUnlock()

	in.mu.Lock()
	defer in.mu.Unlock()
	if v, ok := in.store[key]; ok {
		return v
	}
	in.store[key] = s
	return s
}

// Len returns the number of distinct strings interned so far.
func (in *Interner) Len() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.store)
}

func digest(s string) [16]byte {
	h, _ := blake2b.New(16, nil)
	_, _ = h.Write([]byte(s))
	var out [16]byte
	copy(out[:], h.Sum(nil))
	return out
}
