package pin

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrBackendUnavailable indicates the credential backend is unreachable.
	ErrBackendUnavailable = errors.New("pin backend unavailable")
	// ErrNotConfigured is returned when the user has never set a PIN.
	ErrNotConfigured = errors.New("pin not configured")
	// ErrInvalidPin is returned by Setup/Reset for a PIN that is not exactly
	// four digits.
	ErrInvalidPin = errors.New("pin must be exactly 4 digits")
	// ErrInvalidQuestion is returned for a security question id outside the
	// enumerated set.
	ErrInvalidQuestion = errors.New("invalid security question")
	// ErrAnswerTooShort is returned for a security answer under 2 characters.
	ErrAnswerTooShort = errors.New("security answer too short")
	// ErrAnswerMismatch is returned by Reset when the security answer does
	// not match the stored one.
	ErrAnswerMismatch = errors.New("security answer does not match")
)

var pinPattern = regexp.MustCompile(`^\d{4}$`)

// securityQuestions is the fixed enumerated set offered during PIN setup.
// IDs are 1-based and stable; stored credentials reference them by id.
var securityQuestions = []string{
	"What was the name of your first pet?",
	"What city were you born in?",
	"What was your childhood nickname?",
	"What is your mother's maiden name?",
}

// Questions returns the enumerated security question texts in id order.
func Questions() []string {
	out := make([]string, len(securityQuestions))
	copy(out, securityQuestions)
	return out
}

// QuestionText returns the text for a 1-based question id.
func QuestionText(id int) (string, bool) {
	if id < 1 || id > len(securityQuestions) {
		return "", false
	}
	return securityQuestions[id-1], true
}

// Verification is the outcome of one PIN check.
type Verification struct {
	OK                bool
	Locked            bool
	RemainingAttempts int
	LockedUntil       time.Time
}

// Verifier is the PIN verification collaborator contract consumed by the
// engine. The bundled [Store] satisfies it; callers may substitute their own.
type Verifier interface {
	HasPin(ctx context.Context, userID string) (bool, error)
	Verify(ctx context.Context, userID, pin string) (Verification, error)
	Setup(ctx context.Context, userID, pin string, questionID int, answer string) error
	Reset(ctx context.Context, userID, answer, newPin string) error
	SecurityQuestion(ctx context.Context, userID string) (int, string, error)
}

// Config controls the bundled verifier. Zero values fall back to defaults:
// 3 attempts, 15 minute lockout, 10 minute failure window.
type Config struct {
	RedisPrefix     string
	MaxAttempts     int
	LockoutDuration time.Duration
	FailureWindow   time.Duration
}

// Store is the Redis-backed [Verifier]. Failure counting follows a rolling
// window: the counter expires FailureWindow after the first miss, and a
// successful check resets it.
type Store struct {
	redis  redis.UniversalClient
	cfg    Config
	params hashParams
}

// New creates the bundled verifier.
func New(client redis.UniversalClient, cfg Config) *Store {
	if cfg.RedisPrefix == "" {
		cfg.RedisPrefix = "pc"
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = 15 * time.Minute
	}
	if cfg.FailureWindow <= 0 {
		cfg.FailureWindow = 10 * time.Minute
	}
	return &Store{redis: client, cfg: cfg, params: defaultHashParams()}
}

func (s *Store) credKey(userID string) string {
	return s.cfg.RedisPrefix + ":cred:" + userID
}

func (s *Store) failKey(userID string) string {
	return s.cfg.RedisPrefix + ":fail:" + userID
}

func (s *Store) lockKey(userID string) string {
	return s.cfg.RedisPrefix + ":lock:" + userID
}

// HasPin reports whether the user has a configured PIN.
func (s *Store) HasPin(ctx context.Context, userID string) (bool, error) {
	n, err := s.redis.Exists(ctx, s.credKey(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return n > 0, nil
}

// Verify checks the submitted PIN. An active lockout short-circuits without
// consuming an attempt, even when the submitted PIN is correct.
func (s *Store) Verify(ctx context.Context, userID, pin string) (Verification, error) {
	if locked, until, err := s.lockState(ctx, userID); err != nil {
		return Verification{}, err
	} else if locked {
		return Verification{Locked: true, LockedUntil: until}, nil
	}

	stored, err := s.redis.HGet(ctx, s.credKey(userID), "pin").Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Verification{}, ErrNotConfigured
		}
		return Verification{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	ok, err := verifySecret(pin, stored)
	if err != nil {
		return Verification{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if ok {
		if err := s.redis.Del(ctx, s.failKey(userID)).Err(); err != nil {
			return Verification{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		return Verification{OK: true, RemainingAttempts: s.cfg.MaxAttempts}, nil
	}

	count, err := s.redis.Incr(ctx, s.failKey(userID)).Result()
	if err != nil {
		return Verification{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if count == 1 {
		// TTL on first failure makes the counter a rolling window.
		if err := s.redis.Expire(ctx, s.failKey(userID), s.cfg.FailureWindow).Err(); err != nil {
			return Verification{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
	}

	if int(count) >= s.cfg.MaxAttempts {
		until := time.Now().Add(s.cfg.LockoutDuration)
		pipe := s.redis.TxPipeline()
		pipe.Set(ctx, s.lockKey(userID), "1", s.cfg.LockoutDuration)
		pipe.Del(ctx, s.failKey(userID))
		if _, err := pipe.Exec(ctx); err != nil {
			return Verification{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		return Verification{Locked: true, LockedUntil: until}, nil
	}

	return Verification{RemainingAttempts: s.cfg.MaxAttempts - int(count)}, nil
}

func (s *Store) lockState(ctx context.Context, userID string) (bool, time.Time, error) {
	ttl, err := s.redis.PTTL(ctx, s.lockKey(userID)).Result()
	if err != nil {
		return false, time.Time{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if ttl > 0 {
		return true, time.Now().Add(ttl), nil
	}
	return false, time.Time{}, nil
}

// Setup stores a new PIN together with the chosen security question and the
// hashed answer. It overwrites any existing credential.
func (s *Store) Setup(ctx context.Context, userID, pin string, questionID int, answer string) error {
	if !pinPattern.MatchString(pin) {
		return ErrInvalidPin
	}
	if _, ok := QuestionText(questionID); !ok {
		return ErrInvalidQuestion
	}
	answer = normalizeAnswer(answer)
	if len(answer) < 2 {
		return ErrAnswerTooShort
	}

	pinHash, err := hashSecret(pin, s.params)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	answerHash, err := hashSecret(answer, s.params)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	pipe := s.redis.TxPipeline()
	pipe.HSet(ctx, s.credKey(userID), map[string]interface{}{
		"pin":    pinHash,
		"qid":    questionID,
		"answer": answerHash,
	})
	pipe.Del(ctx, s.failKey(userID), s.lockKey(userID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

// Reset replaces the PIN after verifying the stored security answer. A
// successful reset also clears any failure counter and lockout.
func (s *Store) Reset(ctx context.Context, userID, answer, newPin string) error {
	if !pinPattern.MatchString(newPin) {
		return ErrInvalidPin
	}

	stored, err := s.redis.HGet(ctx, s.credKey(userID), "answer").Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNotConfigured
		}
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	ok, err := verifySecret(normalizeAnswer(answer), stored)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if !ok {
		return ErrAnswerMismatch
	}

	pinHash, err := hashSecret(newPin, s.params)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	pipe := s.redis.TxPipeline()
	pipe.HSet(ctx, s.credKey(userID), "pin", pinHash)
	pipe.Del(ctx, s.failKey(userID), s.lockKey(userID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

// SecurityQuestion returns the id and text of the user's chosen question.
func (s *Store) SecurityQuestion(ctx context.Context, userID string) (int, string, error) {
	raw, err := s.redis.HGet(ctx, s.credKey(userID), "qid").Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, "", ErrNotConfigured
		}
		return 0, "", fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, "", fmt.Errorf("%w: corrupt question id", ErrBackendUnavailable)
	}
	text, ok := QuestionText(id)
	if !ok {
		return 0, "", fmt.Errorf("%w: question id out of range", ErrBackendUnavailable)
	}
	return id, text, nil
}

func normalizeAnswer(answer string) string {
	return strings.ToLower(strings.TrimSpace(answer))
}
