package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"mrifractal/internal/models"
	"mrifractal/pkg/analysis"
	"mrifractal/pkg/boxcount"
	"mrifractal/pkg/config"
	"mrifractal/pkg/loader"
)

// HealthResponse is returned by the health endpoint
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    int       `json:"uptime"`
	Version   string    `json:"version"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

// Server serves fractal dimension estimates over HTTP
type Server struct {
	startTime time.Time
	version   string
	cfg       *config.Config
}

// NewServer creates a new server instance. cfg supplies the defaults that
// query parameters override.
func NewServer(version string, cfg *config.Config) *Server {
	return &Server{
		startTime: time.Now(),
		version:   version,
		cfg:       cfg,
	}
}

// Router returns the chi router with middleware and the /api/v1 routes
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(s.cfg.Server.Timeout))

	// CORS middleware for API access
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.GetHealth)
		r.Post("/dimension", s.EstimateDimension)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/api/v1/health", http.StatusMovedPermanently)
	})

	return r
}

// GetHealth implements the health check endpoint
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Uptime:    int(time.Since(s.startTime).Seconds()),
		Version:   s.version,
	}
	s.writeJSON(w, http.StatusOK, response)
}

// EstimateDimension decodes the uploaded slice and returns its fractal
// dimension with the box-count series. The slice is either the raw request
// body or the "image" field of a multipart form.
func (s *Server) EstimateDimension(w http.ResponseWriter, r *http.Request) {
	maxBytes := int64(s.cfg.Server.MaxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	cfg, opts, err := s.requestOptions(r)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "INVALID_PARAMETER", err.Error())
		return
	}

	body, name, err := s.upload(r, maxBytes)
	if err != nil {
		s.handleUploadError(w, r, err)
		return
	}
	defer body.Close()

	slice, err := loader.Decode(body, name, opts)
	if err != nil {
		s.handleUploadError(w, r, err)
		return
	}

	start := time.Now()
	result, err := boxcount.EstimateContext(r.Context(), slice.Image(), cfg)
	if err != nil {
		s.handleEstimateError(w, r, err)
		return
	}

	report := analysis.NewSliceReport(models.SliceResult{
		Slice:   slice,
		Result:  result,
		Elapsed: time.Since(start),
	})
	s.writeJSON(w, http.StatusOK, report)
}

// requestOptions applies the query overrides to the configured defaults
func (s *Server) requestOptions(r *http.Request) (boxcount.Config, loader.Options, error) {
	cfg := s.cfg.BoxCount()
	// A single image per request, so scan box sizes on all cores.
	cfg.Workers = 0
	opts := s.cfg.LoaderOptions()

	q := r.URL.Query()
	for _, p := range []struct {
		name string
		dst  *int
	}{
		{"divisor", &cfg.MaxBoxDivisor},
		{"min", &cfg.MinBoxSize},
		{"sets", &cfg.NumberOfOffsetSets},
	} {
		if v := q.Get(p.name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return cfg, opts, fmt.Errorf("%s must be an integer, got %q", p.name, v)
			}
			*p.dst = n
		}
	}

	if v := q.Get("noise"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, opts, fmt.Errorf("noise must be a boolean, got %q", v)
		}
		cfg.ConsiderNoiseFloor = b
	}

	if v := q.Get("intensity"); v != "" {
		opts.Intensity = v
	}

	return cfg, opts, nil
}

// upload returns the slice data and the name used for format detection
func (s *Server) upload(r *http.Request, maxBytes int64) (io.ReadCloser, string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			return nil, "", err
		}
		file, header, err := r.FormFile("image")
		if err != nil {
			return nil, "", fmt.Errorf("missing image field: %w", err)
		}
		return file, header.Filename, nil
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		name = "upload"
	}
	return r.Body, name, nil
}

// handleUploadError maps request body and decoding failures
func (s *Server) handleUploadError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		s.writeError(w, r, http.StatusRequestEntityTooLarge, "UPLOAD_TOO_LARGE",
			fmt.Sprintf("upload exceeds %d MB", s.cfg.Server.MaxUploadMB))
		return
	}
	s.writeError(w, r, http.StatusBadRequest, "INVALID_IMAGE", err.Error())
}

// handleEstimateError maps estimator errors to status codes
func (s *Server) handleEstimateError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		emptyErr  *boxcount.EmptyImageError
		scanErr   *boxcount.DegenerateScanError
		fitErr    *boxcount.DegenerateFitError
		configErr *boxcount.InvalidConfigError
	)

	switch {
	case errors.As(err, &emptyErr):
		s.writeError(w, r, http.StatusUnprocessableEntity, "EMPTY_IMAGE", err.Error())
	case errors.As(err, &scanErr):
		s.writeError(w, r, http.StatusUnprocessableEntity, "DEGENERATE_SCAN", err.Error())
	case errors.As(err, &fitErr):
		s.writeError(w, r, http.StatusUnprocessableEntity, "DEGENERATE_FIT", err.Error())
	case errors.As(err, &configErr):
		s.writeError(w, r, http.StatusUnprocessableEntity, "INVALID_CONFIG", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		s.writeError(w, r, http.StatusGatewayTimeout, "TIMEOUT", "estimate timed out")
	default:
		log.Printf("Estimate failed: %v", err)
		s.writeError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, statusCode int, code, message string) {
	s.writeJSON(w, statusCode, ErrorResponse{
		Code:      code,
		Message:   message,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}
