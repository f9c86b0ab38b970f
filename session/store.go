package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrStoreUnavailable indicates the session backend is unreachable.
var ErrStoreUnavailable = errors.New("session backend unavailable")

const minTTL = time.Second

// Store is a Redis-backed session store with sliding expiration.
//
// All mutating helpers are read-modify-write against a single key. Callers
// that need the check-then-act sequences above this store to be atomic per
// user (the dispatcher does) must serialize access per user key; the store
// itself only guarantees that each individual call is consistent.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewStore creates a session [Store] backed by the given Redis client.
// prefix sets the Redis key namespace and ttl the sliding session lifetime.
func NewStore(client redis.UniversalClient, prefix string, ttl time.Duration) *Store {
	if prefix == "" {
		prefix = "cs"
	}
	if ttl < minTTL {
		ttl = minTTL
	}
	return &Store{redis: client, prefix: prefix, ttl: ttl}
}

// TTL returns the configured sliding session lifetime.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

func (s *Store) key(userID string) string {
	return s.prefix + ":" + userID
}

// GetOrCreate returns the user's live session, creating a fresh one when the
// user has none or the stored one has expired. Every call refreshes the
// sliding expiry and increments the message counter. The second return value
// reports whether a new session was created.
func (s *Store) GetOrCreate(ctx context.Context, userID, channelAddress string) (*Session, bool, error) {
	now := time.Now()

	sess, err := s.load(ctx, userID)
	if err != nil {
		return nil, false, err
	}

	created := false
	if sess == nil || sess.ExpiresAt <= now.Unix() {
		sess = &Session{
			UserID:         userID,
			ChannelAddress: channelAddress,
			CreatedAt:      now.Unix(),
		}
		created = true
	}

	if channelAddress != "" {
		sess.ChannelAddress = channelAddress
	}
	sess.LastActivity = now.Unix()
	sess.ExpiresAt = now.Add(s.ttl).Unix()
	sess.MessageCount++

	if err := s.Save(ctx, sess); err != nil {
		return nil, false, err
	}
	return sess, created, nil
}

// Peek returns the stored session without refreshing its expiry.
// A missing or expired session yields (nil, nil).
func (s *Store) Peek(ctx context.Context, userID string) (*Session, error) {
	sess, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sess != nil && sess.ExpiresAt <= time.Now().Unix() {
		return nil, nil
	}
	return sess, nil
}

func (s *Store) load(ctx context.Context, userID string) (*Session, error) {
	data, err := s.redis.Get(ctx, s.key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	sess, err := Decode(data)
	if err != nil {
		// A corrupt blob is treated like an absent session rather than a
		// hard failure; the record is dropped and recreated on next access.
		_ = s.redis.Del(ctx, s.key(userID)).Err()
		return nil, nil
	}
	return sess, nil
}

// Save persists the session under its remaining absolute lifetime.
func (s *Store) Save(ctx context.Context, sess *Session) error {
	data, err := Encode(sess)
	if err != nil {
		return err
	}
	ttl := time.Until(time.Unix(sess.ExpiresAt, 0))
	if ttl < minTTL {
		ttl = minTTL
	}
	if err := s.redis.Set(ctx, s.key(sess.UserID), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Update applies fn to the stored session and writes it back. When the user
// has no live session the call is a silent no-op: absence is "no session
// yet", never an error.
func (s *Store) Update(ctx context.Context, userID string, fn func(*Session)) error {
	sess, err := s.Peek(ctx, userID)
	if err != nil {
		return err
	}
	if sess == nil {
		return nil
	}
	fn(sess)
	return s.Save(ctx, sess)
}

// ArmGate marks the session as awaiting a PIN and records the pending
// operation. The awaiting flag and the payload are always set together.
func (s *Store) ArmGate(ctx context.Context, userID string, kind uint8, payload map[string]string) error {
	return s.Update(ctx, userID, func(sess *Session) {
		sess.AwaitingPin = true
		sess.PendingKind = kind
		sess.PendingPayload = payload
	})
}

// ClearGate discards any pending operation and lowers the awaiting flag.
func (s *Store) ClearGate(ctx context.Context, userID string) error {
	return s.Update(ctx, userID, func(sess *Session) {
		sess.AwaitingPin = false
		sess.PendingKind = 0
		sess.PendingPayload = nil
	})
}

// StartFlow activates the named wizard at step 1 with optional seed data.
func (s *Store) StartFlow(ctx context.Context, userID, name string, seed map[string]string) error {
	return s.Update(ctx, userID, func(sess *Session) {
		sess.FlowName = name
		sess.FlowStep = 1
		sess.FlowData = seed
		if sess.FlowData == nil {
			sess.FlowData = map[string]string{}
		}
	})
}

// AdvanceFlow moves the active flow's step index by delta. A delta that
// would push the step below 1 or beyond maxStep resets the flow entirely:
// an out-of-range step is a state error and the safe default is no flow.
func (s *Store) AdvanceFlow(ctx context.Context, userID string, delta int, maxStep int) error {
	return s.Update(ctx, userID, func(sess *Session) {
		if sess.FlowName == "" {
			return
		}
		next := int(sess.FlowStep) + delta
		if next < 1 || next > maxStep {
			resetFlow(sess)
			return
		}
		sess.FlowStep = uint8(next)
	})
}

// MergeFlowData merges the given answers into the flow's accumulated data.
func (s *Store) MergeFlowData(ctx context.Context, userID string, kv map[string]string) error {
	return s.Update(ctx, userID, func(sess *Session) {
		if sess.FlowName == "" {
			return
		}
		if sess.FlowData == nil {
			sess.FlowData = map[string]string{}
		}
		for k, v := range kv {
			sess.FlowData[k] = v
		}
	})
}

// CompleteFlow unconditionally exits any active wizard.
func (s *Store) CompleteFlow(ctx context.Context, userID string) error {
	return s.Update(ctx, userID, func(sess *Session) {
		resetFlow(sess)
	})
}

func resetFlow(sess *Session) {
	sess.FlowName = ""
	sess.FlowStep = 0
	sess.FlowData = nil
}

// Delete removes the user's session. Deleting an absent session is a no-op.
func (s *Store) Delete(ctx context.Context, userID string) error {
	if err := s.redis.Del(ctx, s.key(userID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Sweep scans the session namespace and deletes records whose absolute
// expiry has passed. Redis TTLs already bound the backing store; the sweep
// exists to reclaim records whose key TTL outlives their logical expiry.
// Safe to run concurrently with normal access.
func (s *Store) Sweep(ctx context.Context) (int, error) {
	var removed int
	iter := s.redis.Scan(ctx, 0, s.prefix+":*", 100).Iterator()
	now := time.Now().Unix()
	for iter.Next(ctx) {
		key := iter.Val()
		data, err := s.redis.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return removed, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		sess, err := Decode(data)
		if err != nil || sess.ExpiresAt <= now {
			if err := s.redis.Del(ctx, key).Err(); err != nil {
				return removed, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
			}
			removed++
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return removed, nil
}
