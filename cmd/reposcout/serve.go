package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/reposcout/internal/database"
	"github.com/nao1215/reposcout/internal/metrics"
	"github.com/nao1215/reposcout/internal/model"
	"github.com/nao1215/reposcout/internal/report"
	"github.com/nao1215/reposcout/internal/search"
)

const (
	// shutdownTimeout bounds the wait for in-flight requests on exit.
	shutdownTimeout = 20 * time.Second

	readHeaderTimeout = 10 * time.Second
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve searches over HTTP",
		Long: `Serve starts an HTTP server that runs searches on request.

Endpoints:
  GET /search?q=<keywords>&type=<type>   result list in the JSON wire format
  GET /search?q=<keywords>&full=true     full search report
  GET /metrics                           Prometheus metrics
  GET /healthz                           liveness check

Every request picks its own proxy from the configured candidates, exactly
like 'reposcout search'. A failed search answers with an empty list.

Examples:
  # Serve on the default address
  reposcout serve

  # Serve on all interfaces through a proxy list
  reposcout serve --listen :8080 -P proxies.txt`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().StringP("listen", "l", "",
		"Address to listen on (default: 127.0.0.1:8080)")
	addProxyFlags(cmd)
	addRequestFlags(cmd)
	addStorageFlags(cmd)

	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	verbose := getVerboseFlag(cmd)

	cfg, err := loadBaseConfig(cmd)
	if err != nil {
		return err
	}
	if err := applySearchFlags(cmd, cfg); err != nil {
		return err
	}
	if cmd.Flags().Changed("listen") {
		if cfg.ListenAddress, err = cmd.Flags().GetString("listen"); err != nil {
			return err
		}
	}
	cfg.Verbose = verbose
	if err := cfg.ValidateSettings(); err != nil {
		return err
	}

	logger := setupLogger(cmd.ErrOrStderr(), verbose)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	extra, cleanup, err := torCandidates(ctx, cfg, cmd.ErrOrStderr(), logger)
	if err != nil {
		return err
	}
	defer cleanup()

	collector := metrics.New()
	searcher, err := search.NewFromConfig(cfg, logger, collector, extra...)
	if err != nil {
		return err
	}

	var db *database.SearchDB
	if cfg.SaveToDB {
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
	}

	srv := &searchServer{
		searcher:   searcher,
		db:         db,
		searchType: cfg.SearchType,
		logger:     logger,
	}

	ln, err := net.Listen("tcp", cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.ListenAddress, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Listening on http://%s\n", ln.Addr())

	return serve(ctx, ln, srv.routes(collector), logger)
}

// serve runs handler on ln until ctx is done, then shuts down gracefully.
func serve(ctx context.Context, ln net.Listener, handler http.Handler, logger *slog.Logger) error {
	httpServer := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return <-errCh
}

// searchServer answers search requests over HTTP.
type searchServer struct {
	searcher   *search.Searcher
	db         *database.SearchDB
	searchType string
	logger     *slog.Logger
}

func (s *searchServer) routes(collector *metrics.Collector) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /search", s.handleSearch)
	mux.Handle("GET /metrics", collector.Handler())
	mux.HandleFunc("GET /healthz", handleHealthz)
	return mux
}

func (s *searchServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	keywords := strings.Fields(params.Get("q"))
	if len(keywords) == 0 {
		writeJSONError(w, http.StatusBadRequest, "missing query parameter q")
		return
	}
	searchType := params.Get("type")
	if searchType == "" {
		searchType = s.searchType
	}
	full, _ := strconv.ParseBool(params.Get("full")) //nolint:errcheck // absent or invalid means false

	rep := s.searcher.Search(r.Context(), model.NewQuery(keywords, searchType))
	if err := saveReport(r.Context(), s.db, rep, s.logger); err != nil {
		s.logger.Error("failed to save search report", "query", rep.Query.String(), "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	var writer report.Writer = report.NewJSONWriter(w)
	if full {
		writer = report.NewFullJSONWriter(w, getVersion())
	}
	if _, err := writer.Write(rep); err != nil {
		s.logger.Error("failed to write response", "error", err)
	}
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n")) //nolint:errcheck // client gone
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg}) //nolint:errcheck // client gone
}
