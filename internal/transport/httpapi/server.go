// Package httpapi exposes the REST surface consumed by the existing
// frontend: record CRUD, keyword and semantic search, document processing,
// statistics and the knowledge hub.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hub-aura/aurahub/internal/domain"
	"github.com/hub-aura/aurahub/internal/extract"
	"github.com/hub-aura/aurahub/internal/hub"
	"github.com/hub-aura/aurahub/internal/metrics"
	healthuc "github.com/hub-aura/aurahub/internal/usecase/health"
	partnershipuc "github.com/hub-aura/aurahub/internal/usecase/partnership"
	searchuc "github.com/hub-aura/aurahub/internal/usecase/search"
	"github.com/hub-aura/aurahub/internal/version"
)

const maxUploadBytes = 20 << 20

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server holds the use case services behind the HTTP handlers.
type Server struct {
	partnerships *partnershipuc.Service
	search       *searchuc.Service
	health       *healthuc.Service
	knowledge    *hub.Hub
	pdf          *extract.PDFReader
	extractor    *extract.Extractor
	logger       *zap.Logger

	errorHandlers []errorHandler
}

// NewServer creates the HTTP API server.
func NewServer(
	partnerships *partnershipuc.Service,
	search *searchuc.Service,
	health *healthuc.Service,
	knowledge *hub.Hub,
	pdf *extract.PDFReader,
	extractor *extract.Extractor,
	logger *zap.Logger,
) *Server {
	s := &Server{
		partnerships: partnerships,
		search:       search,
		health:       health,
		knowledge:    knowledge,
		pdf:          pdf,
		extractor:    extractor,
		logger:       logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrEmptyQuery, http.StatusBadRequest),
		sentinelHandler(domain.ErrInvalidFilter, http.StatusBadRequest),
		sentinelHandler(domain.ErrInvalidPartnership, http.StatusBadRequest),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound),
		sentinelHandler(extract.ErrNoText, http.StatusBadRequest),
		sentinelHandler(hub.ErrEmptyDocument, http.StatusBadRequest),
	}
	return s
}

// Router assembles the chi router with the full middleware chain.
func (s *Server) Router(corsOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiRequestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
	}))
	r.Use(metrics.Middleware())

	r.Get("/", s.handleRoot)
	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/parcerias", s.handleList)
		r.Post("/parcerias", s.handleCreate)
		r.Get("/parcerias/busca", s.handleKeywordSearch)
		r.Get("/parcerias/semantic-busca", s.handleSemanticSearch)
		r.Get("/parcerias/{id}", s.handleGet)
		r.Get("/parcerias/{id}/similares", s.handleSimilar)

		r.Post("/processar-documento", s.handleProcessDocument)

		r.Get("/estatisticas/parcerias_por_ano", s.handleStatsByYear)
		r.Get("/estatisticas/situacao", s.handleStatsByStatus)

		r.Post("/hub/documentos", s.handleHubAdd)
		r.Get("/hub/documentos/{id}", s.handleHubGet)
		r.Get("/hub/busca", s.handleHubSearch)
		r.Get("/hub/insights", s.handleHubInsights)
	})

	return r
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "aurahub",
		"version": version.Version,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())
	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	limit, offset := s.partnerships.ClampPage(
		queryInt(r, "limit", 0),
		queryInt(r, "skip", 0),
	)

	items, err := s.partnerships.List(r.Context(), limit, offset)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// createRequest mirrors the record schema field names on manual creation.
type createRequest struct {
	LegalName string  `json:"razao_social"`
	Subject   string  `json:"objeto"`
	TaxID     *string `json:"cpf_cnpj"`
	TermYear  *int    `json:"ano_do_termo"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := s.partnerships.Create(r.Context(), domain.NewPartnership{
		LegalName: req.LegalName,
		Subject:   req.Subject,
		TaxID:     req.TaxID,
		TermYear:  req.TermYear,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid record id")
		return
	}

	record, err := s.partnerships.Get(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleKeywordSearch(w http.ResponseWriter, r *http.Request) {
	limit, offset := s.partnerships.ClampPage(
		queryInt(r, "limit", 0),
		queryInt(r, "skip", 0),
	)

	result, err := s.partnerships.SearchKeyword(r.Context(), r.URL.Query().Get("termo"), limit, offset)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSemanticSearch(w http.ResponseWriter, r *http.Request) {
	limit, offset := s.partnerships.ClampPage(
		queryInt(r, "limit", 0),
		queryInt(r, "skip", 0),
	)

	var filters searchuc.Filters
	if raw := r.URL.Query().Get("ano"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "ano must be an integer")
			return
		}
		filters.Year = &year
	}

	result, err := s.search.Search(r.Context(), r.URL.Query().Get("termo"), filters, limit, offset)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSimilar(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid record id")
		return
	}

	result, err := s.search.Similar(r.Context(), id, queryInt(r, "limite", 5))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleProcessDocument(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart upload")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	text, err := s.pdf.Text(r.Context(), content)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, s.extractor.Extract(text))
}

func (s *Server) handleStatsByYear(w http.ResponseWriter, r *http.Request) {
	stats, err := s.partnerships.StatsByYear(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleStatsByStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := s.partnerships.StatsByStatus(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleHubAdd(w http.ResponseWriter, r *http.Request) {
	var doc hub.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.knowledge.Add(doc); err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": doc.ID})
}

func (s *Server) handleHubGet(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.knowledge.Get(chi.URLParam(r, "id"))
	if !ok {
		s.handleDomainError(w, domain.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleHubSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	hits := s.knowledge.Search(
		q.Get("q"),
		q.Get("categoria"),
		q["tag"],
		queryInt(r, "limit", 20),
	)
	if hits == nil {
		hits = []hub.Hit{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total": len(hits),
		"items": hits,
	})
}

func (s *Server) handleHubInsights(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.knowledge.Insights())
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

// safeMessage returns a sentinel error message for the client without
// exposing internals.
func safeMessage(err error) string {
	sentinels := []error{
		domain.ErrEmptyQuery,
		domain.ErrInvalidFilter,
		domain.ErrInvalidPartnership,
		domain.ErrNotFound,
		extract.ErrNoText,
		hub.ErrEmptyDocument,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel
// error.
func sentinelHandler(sentinel error, status int) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	// Provider, storage and dimension failures all collapse to an opaque 500.
	// The stored-set dimension invariant breaking is worth a loud log line.
	if errors.Is(err, domain.ErrDimensionMismatch) {
		s.logger.Error("stored vector dimensions diverge from the encoder", zap.Error(err))
	} else {
		s.logger.Error("internal error", zap.Error(err))
	}
	writeError(w, http.StatusInternalServerError, "internal error")
}
