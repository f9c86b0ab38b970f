// Command chatcore runs the conversation engine as a service.
//
// "chatcore serve" exposes a webhook for inbound messages; "chatcore chat"
// runs an interactive REPL against the same engine, for local development.
// Configuration comes from the environment (a .env file is loaded when
// present):
//
//	CHATCORE_REDIS_ADDR     Redis address (default localhost:6379)
//	CHATCORE_REDIS_PASSWORD Redis password (optional)
//	CHATCORE_DB_PATH        SQLite directory path (default chatcore.db)
//	CHATCORE_LISTEN_ADDR    serve listen address (default :8080)
//	CHATCORE_RECEIPT_KEY    enables signed receipts when set
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// Missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "chatcore",
		Short:         "Conversational transaction-gating engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newChatCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "chatcore:", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
