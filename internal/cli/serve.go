package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"catalograg/internal/adapter/cache"
	"catalograg/internal/server"
	"catalograg/internal/usecase"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the chat API server",
	Long: `Start the HTTP server exposing the chat endpoint. Each request embeds
the conversation, retrieves matching products and generates a grounded
answer.

Endpoints:
  POST /api/chat
  GET  /health`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	baseEmbedder, err := buildEmbedder(cfg)
	if err != nil {
		return fmt.Errorf("failed to build embedder: %w", err)
	}
	// Chat traffic re-embeds similar queries; cache them.
	embedder := cache.NewCachedEmbedder(baseEmbedder, cache.NewEmbeddingCache(256, 10*time.Minute))

	idx, err := buildIndex(ctx, cfg, embedder)
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	defer idx.Close()

	reranker, err := buildReranker(cfg)
	if err != nil {
		return fmt.Errorf("failed to build reranker: %w", err)
	}

	sessions, err := buildSessions(cfg)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	defer sessions.Close()

	model, err := buildLLM(cfg)
	if err != nil {
		return fmt.Errorf("failed to build llm: %w", err)
	}

	retriever := usecase.NewRetriever(embedder, idx, reranker, cfg.Retrieve.MaxInflight)
	answerer := usecase.NewAnswerer(model)

	handler := server.NewHandler(server.Deps{
		Retriever: retriever,
		Answerer:  answerer,
		Sessions:  sessions,
		Retrieve:  cfg.Retrieve,
	})

	port := cfg.Server.Port
	if servePort > 0 {
		port = servePort
	}
	addr := fmt.Sprintf(":%d", port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening",
			"addr", addr,
			"embedding_model", embedder.ModelName(),
			"llm_model", model.ModelName(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
