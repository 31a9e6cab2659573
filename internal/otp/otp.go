// Package otp stages short-lived one-time codes in Redis.
package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"
)

// Purpose separates codes issued for different flows to the same address.
type Purpose string

const (
	PurposeVerifyEmail   Purpose = "verify"
	PurposeResetPassword Purpose = "reset"
)

var (
	// ErrExpired means no code is staged: it expired or was never issued.
	ErrExpired = errors.New("otp: code expired or not issued")
	// ErrMismatch means a code is staged but the supplied one differs.
	ErrMismatch = errors.New("otp: code does not match")
)

// Store issues and checks codes.
type Store struct {
	rdb      redis.Cmdable
	ttl      time.Duration
	generate func() (string, error)
}

// NewStore builds a Store keeping codes for ttl.
func NewStore(rdb redis.Cmdable, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl, generate: sixDigits}
}

func key(p Purpose, email string) string {
	return "otp:" + string(p) + ":" + email
}

// Issue stages a new code for email, replacing any previous one.
func (s *Store) Issue(ctx context.Context, p Purpose, email string) (string, error) {
	code, err := s.generate()
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	if err := s.rdb.Set(ctx, key(p, email), code, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store otp: %w", err)
	}
	return code, nil
}

// Verify checks code and consumes it on success.
func (s *Store) Verify(ctx context.Context, p Purpose, email, code string) error {
	k := key(p, email)
	staged, err := s.rdb.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		return ErrExpired
	}
	if err != nil {
		return fmt.Errorf("load otp: %w", err)
	}
	if staged != code {
		return ErrMismatch
	}
	if err := s.rdb.Del(ctx, k).Err(); err != nil {
		return fmt.Errorf("consume otp: %w", err)
	}
	return nil
}

func sixDigits() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
