package password

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"
)

// Observer receives the duration of every hash or compare run by a Pool.
type Observer func(op string, d time.Duration)

// Pool bounds how many hashing operations run at once. Argon2id is CPU and
// memory heavy; without a bound a burst of logins can starve every other
// request handled by the process.
type Pool struct {
	hasher  *Argon2idHasher
	sem     *semaphore.Weighted
	observe Observer
}

// NewPool wraps hasher allowing at most workers concurrent operations.
func NewPool(hasher *Argon2idHasher, workers int, observe Observer) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if observe == nil {
		observe = func(string, time.Duration) {}
	}
	return &Pool{hasher: hasher, sem: semaphore.NewWeighted(int64(workers)), observe: observe}
}

// Hash hashes plaintext once a worker slot is free.
func (p *Pool) Hash(ctx context.Context, plaintext string) (string, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("wait for hash worker: %w", err)
	}
	defer p.sem.Release(1)

	start := time.Now()
	encoded, err := p.hasher.Hash(plaintext)
	p.observe("hash", time.Since(start))
	return encoded, err
}

// Compare compares plaintext with encoded once a worker slot is free. It
// returns the context error if ctx ends while waiting.
func (p *Pool) Compare(ctx context.Context, plaintext, encoded string) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("wait for hash worker: %w", err)
	}
	defer p.sem.Release(1)

	start := time.Now()
	err := p.hasher.Compare(plaintext, encoded)
	p.observe("compare", time.Since(start))
	return err
}
