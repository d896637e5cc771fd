// Package httpapi exposes imports and exports over HTTP.
package httpapi

import (
	"context"
	"eats/internal/adapters/exports"
	"eats/internal/blob"
	"eats/internal/core"
	"eats/internal/eatsml"
	"eats/pkg/domain"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// UserHeader names the acting user. There is no authentication.
const UserHeader = "X-EATS-User"

// MaxDocumentBytes bounds an uploaded EATSML document.
const MaxDocumentBytes = 64 << 20

const requestTimeout = 5 * time.Minute

// Handler serves the EATSML import and export endpoints.
type Handler struct {
	logger  *slog.Logger
	svc     *core.Service
	cache   *eatsml.InfrastructureCache
	jobs    *exports.Worker
	blobs   blob.Store
	options []eatsml.Option
}

// Option configures a Handler.
type Option func(*Handler)

// WithCache serves infrastructure exports through c and flushes it after
// every import.
func WithCache(c *eatsml.InfrastructureCache) Option {
	return func(h *Handler) { h.cache = c }
}

// WithExportJobs enables the background export endpoints. Finished
// documents are read back from blobs.
func WithExportJobs(w *exports.Worker, blobs blob.Store) Option {
	return func(h *Handler) {
		h.jobs = w
		h.blobs = blobs
	}
}

// WithCodecOptions passes options to every exporter and importer.
func WithCodecOptions(opts ...eatsml.Option) Option {
	return func(h *Handler) { h.options = append(h.options, opts...) }
}

// New creates a Handler.
func New(svc *core.Service, logger *slog.Logger, opts ...Option) *Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	h := &Handler{logger: logger, svc: svc}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register registers the routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	api := chi.NewRouter()
	api.Use(middleware.RequestID)
	api.Use(middleware.Recoverer)
	api.Use(h.logRequests)
	api.Use(middleware.Timeout(requestTimeout))
	api.Use(h.requireUser)

	api.Post("/imports", h.handleImport)
	api.Get("/imports", h.handleListImports)
	api.Get("/imports/{id}", h.handleGetImport)
	api.Get("/imports/{id}/raw", h.handleImportDocument(core.ImportRaw))
	api.Get("/imports/{id}/processed", h.handleImportDocument(core.ImportProcessed))
	api.Get("/export/entities", h.handleExportEntities)
	api.Get("/export/infrastructure", h.handleExportInfrastructure)
	if h.jobs != nil {
		api.Post("/export/jobs", h.handleCreateJob)
		api.Get("/export/jobs/{id}", h.handleGetJob)
		api.Get("/export/jobs/{id}/document", h.handleJobDocument)
	}

	r.Mount("/", api)
}

// Routes returns a router serving the handler.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	h.Register(r)
	return r
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := userFrom(ctx)
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxDocumentBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "document too large or unreadable")
		return
	}
	description := r.URL.Query().Get("description")
	options := append(h.codecOptions(), eatsml.WithCache(h.cache))
	ri, err := eatsml.ImportAndRegister(ctx, h.svc, user, description, data, options...)
	if err != nil {
		h.writeCodecError(ctx, w, "import failed", err)
		return
	}
	h.logger.InfoContext(ctx, "document imported",
		"request_id", middleware.GetReqID(ctx),
		"import", ri.ID,
		"user", user.Username,
	)
	writeJSON(w, http.StatusCreated, map[string]any{"import": ri})
}

func (h *Handler) handleListImports(w http.ResponseWriter, r *http.Request) {
	imports, err := h.svc.ListImports(r.Context())
	if err != nil {
		h.writeCodecError(r.Context(), w, "list imports failed", err)
		return
	}
	if imports == nil {
		imports = []domain.RegisteredImport{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"imports": imports})
}

func (h *Handler) handleGetImport(w http.ResponseWriter, r *http.Request) {
	ri, err := h.svc.GetImport(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeCodecError(r.Context(), w, "get import failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"import": ri})
}

func (h *Handler) handleImportDocument(which core.ImportDocument) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := h.svc.ImportDocumentBytes(r.Context(), chi.URLParam(r, "id"), which)
		if err != nil {
			h.writeCodecError(r.Context(), w, "read import document failed", err)
			return
		}
		writeXML(w, data)
	}
}

func (h *Handler) handleExportEntities(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := userFrom(ctx)
	q := r.URL.Query()
	authorityID, err := parseID(q.Get("authority"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid authority id")
		return
	}
	profile := user.Profile
	opts := eatsml.ExportOptions{
		Annotated:   parseBool(q.Get("annotated")),
		FullDetails: parseBool(q.Get("full")),
		Profile:     &profile,
	}
	data, err := eatsml.ExportAuthorityFrom(ctx, h.svc.Store(), authorityID, opts, h.codecOptions()...)
	if err != nil {
		h.writeCodecError(ctx, w, "entity export failed", err)
		return
	}
	writeXML(w, data)
}

func (h *Handler) handleExportInfrastructure(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	opts := eatsml.InfraOptions{
		Limited:   parseBool(q.Get("limited")),
		Annotated: parseBool(q.Get("annotated")),
	}
	data, err := eatsml.CachedInfrastructure(ctx, h.cache, h.svc.Store(), userFrom(ctx), opts, h.codecOptions()...)
	if err != nil {
		h.writeCodecError(ctx, w, "infrastructure export failed", err)
		return
	}
	writeXML(w, data)
}

func (h *Handler) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	authorityID, err := parseID(q.Get("authority"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid authority id")
		return
	}
	job, err := h.jobs.Enqueue(ctx, exports.Request{
		AuthorityID: authorityID,
		Annotated:   parseBool(q.Get("annotated")),
		FullDetails: parseBool(q.Get("full")),
		User:        userFrom(ctx),
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, exports.ErrQueueFull) {
			status = http.StatusServiceUnavailable
		}
		h.logger.WarnContext(ctx, "export job rejected", "request_id", middleware.GetReqID(ctx), "error", err)
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"job": job})
}

func (h *Handler) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, ok := h.jobs.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "export job not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"job": job})
}

func (h *Handler) handleJobDocument(w http.ResponseWriter, r *http.Request) {
	job, ok := h.jobs.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "export job not found")
		return
	}
	if job.Status != exports.StatusSucceeded {
		writeError(w, http.StatusConflict, "export job is "+string(job.Status))
		return
	}
	data, err := blob.ReadAll(r.Context(), h.blobs, exports.Key(job.ID))
	if err != nil {
		h.writeCodecError(r.Context(), w, "read export document failed", err)
		return
	}
	writeXML(w, data)
}

func (h *Handler) codecOptions() []eatsml.Option {
	return append([]eatsml.Option{eatsml.FromService(h.svc)}, h.options...)
}

// writeCodecError maps codec and service errors onto status codes.
func (h *Handler) writeCodecError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	status := statusFor(err)
	attrs := []any{"request_id", middleware.GetReqID(ctx), "error", err}
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, msg, attrs...)
	} else {
		h.logger.WarnContext(ctx, msg, attrs...)
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	var notFound domain.ErrNotFound
	switch {
	case errors.Is(err, eatsml.ErrPermission):
		return http.StatusForbidden
	case errors.Is(err, eatsml.ErrSchema), errors.Is(err, eatsml.ErrProfileRequired):
		return http.StatusBadRequest
	case errors.Is(err, eatsml.ErrAuthorityMismatch), errors.Is(err, eatsml.ErrMissingPrecondition):
		return http.StatusUnprocessableEntity
	case errors.Is(err, eatsml.ErrMissingObject), errors.Is(err, core.ErrImportNotFound),
		errors.Is(err, blob.ErrNotFound), errors.As(err, &notFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func parseID(raw string) (domain.ID, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, errors.New("invalid id")
	}
	return domain.ID(n), nil
}

func parseBool(raw string) bool {
	v, err := strconv.ParseBool(raw)
	return err == nil && v
}

func writeXML(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
