package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used when none is configured.
const DefaultCost = 10

// PasswordHasher defines the hashing primitive used by the session flows.
type PasswordHasher interface {
	// Hash returns a salted digest. Two calls with the same input differ.
	Hash(ctx context.Context, pw string) (string, error)
	// Verify reports whether pw matches digest. It errors only on a
	// malformed digest or when ctx ends first.
	Verify(ctx context.Context, digest, pw string) (bool, error)
}

// BcryptHasher implementation.
type BcryptHasher struct{ Cost int }

// NewBcryptHasher validates cost against bcrypt's accepted range. Zero selects DefaultCost.
func NewBcryptHasher(cost int) (BcryptHasher, error) {
	if cost == 0 {
		cost = DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return BcryptHasher{}, fmt.Errorf("bcrypt cost %d outside [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return BcryptHasher{Cost: cost}, nil
}

func (b BcryptHasher) cost() int {
	if b.Cost == 0 {
		return DefaultCost
	}
	return b.Cost
}

func (b BcryptHasher) Hash(ctx context.Context, pw string) (string, error) {
	h, err := bounded(ctx, func() ([]byte, error) {
		return bcrypt.GenerateFromPassword([]byte(pw), b.cost())
	})
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrPasswordTooLong
		}
		return "", err
	}
	return string(h), nil
}

func (b BcryptHasher) Verify(ctx context.Context, digest, pw string) (bool, error) {
	return bounded(ctx, func() (bool, error) {
		err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(pw))
		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			return false, nil
		default:
			return false, fmt.Errorf("%w: %v", ErrMalformedDigest, err)
		}
	})
}

// bounded runs fn on its own goroutine so the caller can stop waiting when
// ctx ends. bcrypt itself cannot be interrupted; the goroutine finishes in
// the background and its result is dropped.
func bounded[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn()
		ch <- result{v, err}
	}()
	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case r := <-ch:
		return r.v, r.err
	}
}
