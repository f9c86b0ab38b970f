package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/velapay/chatcore"
)

type inboundRequest struct {
	UserID         string `json:"user_id"`
	ChannelAddress string `json:"channel_address"`
	Text           string `json:"text"`
	DisplayName    string `json:"display_name,omitempty"`
}

type inboundResponse struct {
	Text      string `json:"text"`
	Reference string `json:"reference,omitempty"`
	Receipt   string `json:"receipt,omitempty"`
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the inbound-message webhook",
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, cleanup, err := buildEngine(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			srv := &http.Server{
				Addr:              envOr("CHATCORE_LISTEN_ADDR", ":8080"),
				Handler:           newRouter(engine),
				ReadHeaderTimeout: 5 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				log.Printf("listening on %s", srv.Addr)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

func newRouter(engine *chatcore.Engine) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Get("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, engine.MetricsSnapshot())
	})

	r.Post("/inbound", func(w http.ResponseWriter, req *http.Request) {
		var in inboundRequest
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}

		reply, err := engine.HandleMessage(req.Context(), chatcore.Inbound{
			UserID:         in.UserID,
			ChannelAddress: in.ChannelAddress,
			Text:           in.Text,
			DisplayName:    in.DisplayName,
		})
		if err != nil {
			if errors.Is(err, chatcore.ErrEmptyUserID) {
				http.Error(w, "user_id required", http.StatusBadRequest)
				return
			}
			log.Printf("handle message: %v", err)
			http.Error(w, "temporarily unavailable", http.StatusServiceUnavailable)
			return
		}

		writeJSON(w, http.StatusOK, inboundResponse{
			Text:      reply.Text,
			Reference: reply.Reference,
			Receipt:   reply.Receipt,
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
