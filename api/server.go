package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lightlink-network/withdrawal-relayer/database/models"
	"github.com/lightlink-network/withdrawal-relayer/relayer"
)

// Store lists registry records and relay attempts.
type Store interface {
	GetWithdrawals(ctx context.Context, filter models.Filter, page, pageSize int64) (*models.PaginatedResult, error)
	GetRelayAttempts(ctx context.Context, filter models.Filter, page, pageSize int64) (*models.PaginatedResult, error)
}

// API server
type Server struct {
	r       chi.Router
	log     *slog.Logger
	relayer *relayer.Relayer
	store   Store
	opts    ServerOpts
}

type ServerOpts struct {
	Logger  *slog.Logger
	Port    string
	Relayer *relayer.Relayer
	// optional, listing endpoints answer 503 without it
	Store Store
}

// Create API server
func NewServer(opts ServerOpts) (*Server, error) {
	if opts.Relayer == nil {
		return nil, errors.New("relayer is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Server{
		log:     opts.Logger,
		relayer: opts.Relayer,
		store:   opts.Store,
		opts:    opts,
	}
	s.routes()
	return s, nil
}

// Run serves HTTP until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.opts.Port,
		Handler:           s.r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.log.Info("📡 Server Started. API Server is now listening on http://localhost:" + s.opts.Port)
		errChan <- srv.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		s.log.Info("shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// Turns server into http server
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.r.ServeHTTP(w, r)
}

// Returns JSON response to the API user. HTTP status code
// and data must be provided
func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.WriteHeader(statusCode)
	err := json.NewEncoder(w).Encode(data)
	if err != nil {
		fmt.Fprintf(w, "%s", err.Error())
	}
}

// Returns ann error to the API user
func ERROR(w http.ResponseWriter, statusCode int, err error) {
	w.WriteHeader(statusCode)
	err = json.NewEncoder(w).Encode(map[string]interface{}{"error": err.Error()})
	if err != nil {
		fmt.Fprintf(w, "%s", err.Error())
	}
}
