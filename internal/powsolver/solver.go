// Package powsolver implements the parallel proof-of-work search: a
// multi-worker brute-force hunt for a 64-bit nonce whose decimal text,
// appended to a server-supplied authdata token, SHA-1-hashes to a
// digest with at least D leading hex-zero nibbles.
//
// The search is partitioned so that worker i probes the lattice
// i, i+W, i+2W, ... — every 64-bit value is inspected by exactly one
// worker, so no two workers ever produce the same candidate and no
// shared counter is needed.
package powsolver

import (
	"crypto/sha1"
	"encoding"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/dshivanandham/exasol-pow-client/internal/hashutil"
)

// MaxDifficulty is the largest accepted leading-zero-nibble count.
// spec.md §3 tightens the source's unbounded D to 0-40.
const MaxDifficulty = 40

// checkInterval is how often (in hash attempts) a worker re-reads the
// shared cancellation flag. Checking once per ~4k hashes keeps the hot
// loop hash-bound while bounding post-find latency to a few
// milliseconds at realistic hash rates.
const checkInterval = 4096

// Solver runs the parallel PoW search described in spec.md §4.2.
// The zero value is ready to use; Workers defaults to
// runtime.NumCPU() (floored at 1) when left at 0.
type Solver struct {
	// Workers overrides the worker count, mainly for tests that need
	// deterministic, single-threaded search order. 0 means "use
	// hardware parallelism".
	Workers int
}

// result is the solver's shared state: a single-writer result slot
// guarded by a mutex, plus a lock-free cancellation flag for the hot
// loop. At most one worker ever writes nonce/found. The cancellation
// flag is set either by the worker that finds a satisfying nonce or by
// any worker that hits a hash-state failure, so a failure in one
// worker stops its siblings instead of leaving them to spin.
type result struct {
	cancelled atomic.Bool
	mu        sync.Mutex
	found     bool
	nonce     string
}

// Solve searches for a nonce n such that
// sha1_hex(authdata || decimal(n)) has at least difficulty leading
// hex-zero nibbles, and returns decimal(n).
//
// difficulty == 0 is satisfied by every nonce and returns "0"
// immediately without spawning workers. difficulty outside 0-40
// returns ErrInvalidDifficulty.
func (s *Solver) Solve(authdata []byte, difficulty int) (string, error) {
	if difficulty < 0 || difficulty > MaxDifficulty {
		return "", ErrInvalidDifficulty
	}
	if difficulty == 0 {
		return "0", nil
	}

	snapshot, err := precompute(authdata)
	if err != nil {
		return "", err
	}

	workers := s.workerCount()

	res := &result{}
	g := new(errgroup.Group)
	for i := 0; i < workers; i++ {
		start := uint64(i)
		stride := uint64(workers)
		g.Go(func() error {
			return search(snapshot, difficulty, start, stride, res)
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	res.mu.Lock()
	nonce, found := res.nonce, res.found
	res.mu.Unlock()
	if !found {
		return "", ErrExhausted
	}
	return nonce, nil
}

func (s *Solver) workerCount() int {
	if s.Workers > 0 {
		return s.Workers
	}
	n := hardwareParallelism()
	if n < 1 {
		return 1
	}
	return n
}

// precompute absorbs authdata into a fresh SHA-1 state and snapshots
// it via the hash.Hash's encoding.BinaryMarshaler implementation.
// Feeding any suffix into a clone of this snapshot and finalising
// yields the same digest as hashing authdata||suffix from scratch,
// which removes the redundant re-hashing of the (potentially long)
// authdata prefix from every probe.
func precompute(authdata []byte) ([]byte, error) {
	h := sha1.New()
	h.Write(authdata)
	marshaler, ok := h.(encoding.BinaryMarshaler)
	if !ok {
		return nil, fmt.Errorf("%w: hash state is not cloneable", ErrHashFailure)
	}
	state, err := marshaler.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHashFailure, err)
	}
	return state, nil
}

// search runs one worker's strided probe of start, start+stride,
// start+2*stride, ... until it finds a satisfying nonce, observes
// cancellation, or the counter wraps past math.MaxUint64.
func search(snapshot []byte, difficulty int, start, stride uint64, res *result) error {
	counter := start
	var attempts uint64

	for {
		h := sha1.New()
		unmarshaler, ok := h.(encoding.BinaryUnmarshaler)
		if !ok {
			res.cancelled.Store(true)
			return fmt.Errorf("%w: hash state is not cloneable", ErrHashFailure)
		}
		if err := unmarshaler.UnmarshalBinary(snapshot); err != nil {
			res.cancelled.Store(true)
			return fmt.Errorf("%w: %v", ErrHashFailure, err)
		}

		suffix := strconv.FormatUint(counter, 10)
		h.Write([]byte(suffix))
		digest := h.Sum(nil)

		if hashutil.LeadingZeroNibbles(digest, difficulty) {
			res.mu.Lock()
			if !res.cancelled.Load() {
				res.found = true
				res.nonce = suffix
				res.cancelled.Store(true)
			}
			res.mu.Unlock()
			return nil
		}

		attempts++
		if attempts%checkInterval == 0 && res.cancelled.Load() {
			return nil
		}

		next := counter + stride
		if next < counter {
			// Counter wrapped past math.MaxUint64 without a hit;
			// this worker's lattice is exhausted.
			return nil
		}
		counter = next
	}
}
