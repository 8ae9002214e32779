package persistence

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// OTPStore keeps one-time codes keyed by email. Saving a new code replaces any
// prior code for that email.
type OTPStore interface {
	Save(ctx context.Context, email, code string, ttl time.Duration) error
	Verify(ctx context.Context, email, code string) (bool, error)
}

type redisOTPStore struct {
	client *redis.Client
}

// NewOTPStore builds a redis-backed OTP store.
func NewOTPStore(r *Redis) OTPStore {
	if r == nil {
		return &redisOTPStore{client: nil}
	}
	return &redisOTPStore{client: r.Client}
}

func otpKey(email string) string {
	return "otp:" + strings.ToLower(strings.TrimSpace(email))
}

func (s *redisOTPStore) Save(ctx context.Context, email, code string, ttl time.Duration) error {
	if s.client == nil {
		return errors.New("otp store not configured")
	}
	return s.client.Set(ctx, otpKey(email), code, ttl).Err()
}

// Verify consumes the stored code. A successful match removes it so the same
// code can not be replayed.
func (s *redisOTPStore) Verify(ctx context.Context, email, code string) (bool, error) {
	if s.client == nil {
		return false, errors.New("otp store not configured")
	}
	stored, err := s.client.Get(ctx, otpKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		return false, nil
	}
	if err := s.client.Del(ctx, otpKey(email)).Err(); err != nil {
		return false, err
	}
	return true, nil
}
