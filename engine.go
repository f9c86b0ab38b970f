package chatcore

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/velapay/chatcore/intent"
	"github.com/velapay/chatcore/internal/audit"
	"github.com/velapay/chatcore/internal/flows"
	"github.com/velapay/chatcore/internal/locks"
	"github.com/velapay/chatcore/receipt"
	"github.com/velapay/chatcore/session"
)

// Engine is the conversational dispatcher. One instance serves all users;
// all methods are safe for concurrent use.
type Engine struct {
	config     Config
	sessions   *session.Store
	pins       PinVerifier
	classifier *intent.Classifier
	flows      *flows.Registry
	executors  map[OperationKind]OperationExecutor
	identity   IdentityVerifier
	fees       FeeEstimator
	balance    BalanceProvider
	receipts   *receipt.Manager
	audit      *audit.Dispatcher
	metrics    *Metrics
	locks      *locks.Keyed

	sweepOnce sync.Once
	sweepStop chan struct{}
	closeOnce sync.Once
}

// HandleMessage processes one inbound message and returns the reply.
// Messages from the same user are serialized; messages from different
// users proceed independently.
//
// An error return means a backend failed and no state-changing work was
// done for the message; user mistakes (bad PIN, bad input) are replies,
// never errors.
func (e *Engine) HandleMessage(ctx context.Context, msg Inbound) (Reply, error) {
	userID := strings.TrimSpace(msg.UserID)
	if userID == "" {
		return Reply{}, ErrEmptyUserID
	}

	start := time.Now()

	unlock := e.locks.Lock(userID)
	defer unlock()

	sess, created, err := e.sessions.GetOrCreate(ctx, userID, msg.ChannelAddress)
	if err != nil {
		return Reply{}, err
	}
	if created {
		e.metricInc(MetricSessionCreated)
		e.emitAudit(ctx, audit.EventSessionCreated, true, userID, "", "", nil, nil)
	}

	text := strings.TrimSpace(msg.Text)
	if max := e.config.Intent.MaxTextLength; len(text) > max {
		text = text[:max]
	}

	var reply Reply
	switch {
	case sess.GateArmed():
		reply, err = e.handleGate(ctx, sess, text)
	case sess.InFlow():
		reply, err = e.handleFlow(ctx, sess, text)
	default:
		reply, err = e.handleIntent(ctx, sess, text)
	}
	if err != nil {
		return Reply{}, err
	}

	e.metrics.Observe(MetricHandleLatency, time.Since(start))

	return reply, nil
}

// SessionInfo is a read-only snapshot of one session for introspection.
type SessionInfo struct {
	UserID         string
	ChannelAddress string
	CreatedAt      time.Time
	LastActivity   time.Time
	ExpiresAt      time.Time
	MessageCount   uint32
	FlowName       string
	FlowStep       int
	AwaitingPin    bool
	PendingKind    OperationKind
}

// SessionInfo returns the current session for a user without extending its
// TTL. It returns nil when the user has no live session.
func (e *Engine) SessionInfo(ctx context.Context, userID string) (*SessionInfo, error) {
	sess, err := e.sessions.Peek(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, nil
	}
	return &SessionInfo{
		UserID:         sess.UserID,
		ChannelAddress: sess.ChannelAddress,
		CreatedAt:      time.Unix(sess.CreatedAt, 0),
		LastActivity:   time.Unix(sess.LastActivity, 0),
		ExpiresAt:      time.Unix(sess.ExpiresAt, 0),
		MessageCount:   sess.MessageCount,
		FlowName:       sess.FlowName,
		FlowStep:       int(sess.FlowStep),
		AwaitingPin:    sess.AwaitingPin,
		PendingKind:    OperationKind(sess.PendingKind),
	}, nil
}

// StartSweeper launches the background expiry sweep at the configured
// interval. It is a no-op when SweepInterval is zero or on repeat calls;
// Close stops the sweeper.
func (e *Engine) StartSweeper() {
	interval := e.config.Session.SweepInterval
	if interval <= 0 {
		return
	}
	e.sweepOnce.Do(func() {
		e.sweepStop = make(chan struct{})
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-e.sweepStop:
					return
				case <-ticker.C:
					if n, err := e.sessions.Sweep(context.Background()); err == nil && n > 0 {
						e.metrics.Add(MetricSessionExpired, uint64(n))
					}
				}
			}
		}()
	})
}

// MetricsSnapshot returns a point-in-time copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// AuditDropped reports audit events dropped on a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// Close stops the sweeper and drains the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.closeOnce.Do(func() {
		if e.sweepStop != nil {
			close(e.sweepStop)
		}
	})
	if e.audit != nil {
		e.audit.Close()
	}
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}
