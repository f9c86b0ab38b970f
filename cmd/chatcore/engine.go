package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/velapay/chatcore"
	"github.com/velapay/chatcore/directory"
)

// buildEngine wires the engine from the environment. The returned cleanup
// closes the engine and its stores.
func buildEngine(cmd *cobra.Command) (*chatcore.Engine, func(), error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     envOr("CHATCORE_REDIS_ADDR", "localhost:6379"),
		Password: os.Getenv("CHATCORE_REDIS_PASSWORD"),
	})
	if err := rdb.Ping(cmd.Context()).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("redis: %w", err)
	}

	dir, err := directory.Open(envOr("CHATCORE_DB_PATH", "chatcore.db"))
	if err != nil {
		_ = rdb.Close()
		return nil, nil, err
	}

	cfg := chatcore.DefaultConfig()
	cfg.Metrics.Enabled = true
	if key := os.Getenv("CHATCORE_RECEIPT_KEY"); key != "" {
		cfg.Receipt.Enabled = true
		cfg.Receipt.Key = []byte(key)
	}

	b := chatcore.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithIdentityVerifier(dir).
		WithNameResolver(dir).
		WithAuditSink(chatcore.NewJSONAuditSink(os.Stderr))

	// The binary ships logging executors; production deployments embed the
	// library and register real ones.
	for _, kind := range []chatcore.OperationKind{
		chatcore.OpSendFunds,
		chatcore.OpBuyToken,
		chatcore.OpFundCard,
		chatcore.OpCardWithdrawal,
		chatcore.OpCashOut,
	} {
		b.WithExecutor(kind, logExecutor{})
	}

	engine, err := b.Build()
	if err != nil {
		_ = dir.Close()
		_ = rdb.Close()
		return nil, nil, err
	}
	engine.StartSweeper()

	cleanup := func() {
		engine.Close()
		_ = dir.Close()
		_ = rdb.Close()
	}
	return engine, cleanup, nil
}

// logExecutor acknowledges operations without moving money.
type logExecutor struct{}

func (logExecutor) Execute(_ context.Context, op chatcore.Operation) (chatcore.ExecResult, error) {
	ref := uuid.NewString()
	log.Printf("executed %s for %s: amount=%s reference=%s", op.Kind, op.UserID, op.Amount, ref)
	return chatcore.ExecResult{Reference: ref}, nil
}
