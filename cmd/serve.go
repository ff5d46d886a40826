package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/leafgrid/catalog-sync/internal/model"
	"github.com/leafgrid/catalog-sync/internal/normalize"
	"github.com/leafgrid/catalog-sync/internal/queue"
	"github.com/leafgrid/catalog-sync/internal/resilience"
	"github.com/leafgrid/catalog-sync/pkg/erp"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the review API over the import queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		store, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Migrate(ctx); err != nil {
			return err
		}

		var catalog erp.Client
		if cfg.ERP.BaseURL != "" {
			catalog = erp.NewClient(erp.Config{
				BaseURL:      cfg.ERP.BaseURL,
				TokenURL:     cfg.ERP.TokenURL,
				ClientID:     cfg.ERP.ClientID,
				ClientSecret: cfg.ERP.ClientSecret,
				Scope:        cfg.ERP.Scope,
				Timeout:      time.Duration(cfg.ERP.TimeoutSecs) * time.Second,
				Retry: resilience.RetryConfig{
					OnRetry: resilience.RetryLogger("erp", "request"),
				},
			})
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newReviewRouter(store, catalog),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			if err := shutdownServer(srv); err != nil {
				zap.L().Warn("server shutdown", zap.Error(err))
			}
		}()

		zap.L().Info("starting review api", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

const shutdownGrace = 10 * time.Second

// shutdownServer drains in-flight requests. The signal context is already
// cancelled when shutdown starts, so it needs a fresh deadline of its own.
func shutdownServer(srv *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return srv.Shutdown(ctx)
}

// newReviewRouter builds the review API routes. A nil catalog disables the
// import endpoint.
func newReviewRouter(store queue.Store, catalog erp.Client) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/queue", func(w http.ResponseWriter, req *http.Request) {
		statuses, err := queryStatuses(req.URL.Query().Get("status"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		entries, err := store.ListByStatus(req.Context(), statuses)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if entries == nil {
			entries = []model.QueueEntry{}
		}
		writeJSON(w, http.StatusOK, entries)
	})

	r.Post("/queue/{id}/status", func(w http.ResponseWriter, req *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(req, "id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, eris.New("invalid id"))
			return
		}
		var body struct {
			Status string `json:"status"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, eris.New("invalid request body"))
			return
		}
		status, err := model.ParseStatus(body.Status)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := store.SetStatus(req.Context(), id, status); err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		zap.L().Info("review status set", zap.Int64("id", id), zap.String("status", string(status)))
		writeJSON(w, http.StatusOK, map[string]string{"status": string(status)})
	})

	r.Post("/queue/{id}/import", func(w http.ResponseWriter, req *http.Request) {
		if catalog == nil {
			writeError(w, http.StatusServiceUnavailable, eris.New("erp is not configured"))
			return
		}
		id, err := strconv.ParseInt(chi.URLParam(req, "id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, eris.New("invalid id"))
			return
		}
		entry, err := store.GetByID(req.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if entry == nil {
			writeError(w, http.StatusNotFound, eris.Errorf("entry not found: %d", id))
			return
		}
		if entry.Status.Terminal() {
			writeError(w, http.StatusConflict, eris.Errorf("entry %d is already %s", id, entry.Status))
			return
		}

		item, err := importEntry(req, catalog, entry)
		if err != nil {
			writeError(w, http.StatusBadGateway, err)
			return
		}
		if err := store.SetStatus(req.Context(), id, model.StatusProcessed); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"number":       item.Number,
			"display_name": item.DisplayName,
		})
	})

	return r
}

// importEntry creates the catalog item and uploads the locally cached image
// when the item has none yet. The catalog item is named with the
// cultivar-composed name, not the raw stored one. Image problems are logged,
// not fatal: the item exists either way and the entry moves to PROCESSED.
func importEntry(req *http.Request, catalog erp.Client, entry *model.QueueEntry) (*erp.Item, error) {
	ctx := req.Context()
	name := normalize.ComposeDisplayName(entry.Scraped.Name, entry.Scraped.Cultivar)
	if name == "" {
		name = entry.ProductName
	}
	item, err := catalog.CreateItem(ctx, erp.CreateItemRequest{
		DisplayName: name,
		Description: entry.Scraped.Genetic,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "import entry %d", entry.ID)
	}

	if entry.Scraped.ImagePath != "" {
		img, err := os.ReadFile(entry.Scraped.ImagePath)
		if err != nil {
			zap.L().Warn("cached image unreadable", zap.Int64("id", entry.ID), zap.Error(err))
			return item, nil
		}
		hasImage, err := catalog.HasImage(ctx, item.ID)
		if err != nil {
			zap.L().Warn("image check failed", zap.Int64("id", entry.ID), zap.Error(err))
			return item, nil
		}
		if !hasImage {
			if err := catalog.UploadImage(ctx, item.ID, img); err != nil {
				zap.L().Warn("image upload failed", zap.Int64("id", entry.ID), zap.Error(err))
			}
		}
	}
	return item, nil
}

// queryStatuses parses the comma-separated status filter, defaulting to the
// non-terminal statuses the review UI works on.
func queryStatuses(raw string) ([]model.Status, error) {
	if raw == "" {
		return []model.Status{model.StatusReady, model.StatusReview, model.StatusDuplicate}, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]model.Status, len(parts))
	for i, p := range parts {
		s, err := model.ParseStatus(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
