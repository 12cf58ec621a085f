package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voicebridge/transcription-service/internal/audio"
	"github.com/voicebridge/transcription-service/internal/auth"
	"github.com/voicebridge/transcription-service/internal/config"
	"github.com/voicebridge/transcription-service/internal/metrics"
	"github.com/voicebridge/transcription-service/internal/transcription"
)

// Transcriber converts uploaded audio into text. The production
// implementation is the Cloud Speech client in internal/transcription.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, profileID string) (string, error)
}

// StatsSource optionally exposes transcription client statistics for /stats.
type StatsSource interface {
	GetStats() transcription.ClientStats
}

// HTTPServer provides the transcription API and monitoring endpoints
type HTTPServer struct {
	server      *http.Server
	logger      *slog.Logger
	config      *config.Config
	validator   *auth.Validator
	transcriber Transcriber
	metrics     *metrics.Metrics

	startTime time.Time
}

// NewHTTPServer creates a new HTTP API server
func NewHTTPServer(logger *slog.Logger, cfg *config.Config,
	validator *auth.Validator, transcriber Transcriber, m *metrics.Metrics) *HTTPServer {

	h := &HTTPServer{
		logger:      logger,
		config:      cfg,
		validator:   validator,
		transcriber: transcriber,
		metrics:     m,
		startTime:   time.Now(),
	}

	mux := http.NewServeMux()
	h.setupRoutes(mux)

	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port),
		Handler:      mux,
		ReadTimeout:  cfg.HTTP.GetReadTimeout(),
		WriteTimeout: cfg.HTTP.GetWriteTimeout(),
		IdleTimeout:  60 * time.Second,
	}

	return h
}

// setupRoutes configures HTTP API routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	// Health check endpoint, no auth required
	mux.HandleFunc("/health", h.withMetrics("/health", h.handleHealth))

	// Transcription endpoint, gated by the API key validator
	mux.HandleFunc("/transcribe", h.withMetrics("/transcribe", h.withAPIKey(h.handleTranscribe)))

	// Configuration endpoint
	mux.HandleFunc("/config", h.withMetrics("/config", h.handleConfig))

	// Statistics endpoint
	mux.HandleFunc("/stats", h.withMetrics("/stats", h.handleStats))

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	// Root endpoint with API documentation
	mux.HandleFunc("/", h.withMetrics("/", h.handleRoot))
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		handler(ww, r)

		duration := time.Since(startTime).Seconds()
		statusCode := fmt.Sprintf("%d", ww.statusCode)

		h.metrics.RecordHTTPRequest(r.Method, endpoint, statusCode, duration)

		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			h.metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
}

// withAPIKey wraps an HTTP handler with the API key gate. Rejections are
// shaped here so the validator itself stays transport-agnostic.
func (h *HTTPServer) withAPIKey(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.validator.Validate(r.Header.Get(auth.HeaderName)); err != nil {
			h.writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		handler(w, r)
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting HTTP API server",
		slog.String("address", h.server.Addr),
	)

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping HTTP API server...")

	return h.server.Shutdown(ctx)
}

func (h *HTTPServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("Failed to encode response", slog.String("error", err.Error()))
	}
}

func (h *HTTPServer) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleTranscribe implements the POST /transcribe endpoint. The request
// walks authenticated (done by withAPIKey) -> validated -> transcribing ->
// responded, and the uploaded file handle is closed on every exit path.
func (h *HTTPServer) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if err := r.ParseMultipartForm(h.config.HTTP.GetMaxUploadSize()); err != nil {
		h.logger.Warn("Failed to parse multipart form", slog.String("error", err.Error()))
		h.writeError(w, http.StatusBadRequest, "invalid multipart form data")
		return
	}

	profileID := r.FormValue("profile_id")
	if profileID == "" {
		h.writeError(w, http.StatusBadRequest, "profile_id is required")
		return
	}

	file, header, err := r.FormFile("audio_file")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "audio_file is required")
		return
	}
	defer file.Close()

	h.logger.Info("Received transcription request",
		slog.String("profile_id", profileID),
		slog.String("filename", header.Filename),
	)

	// The declared content type is advisory. M4A uploads usually carry
	// audio/mp4 or audio/x-m4a.
	declaredType := header.Header.Get("Content-Type")
	if declaredType != "" && !strings.HasPrefix(declaredType, "audio/") {
		if h.config.Recognition.StrictContentType {
			h.writeError(w, http.StatusUnsupportedMediaType,
				fmt.Sprintf("unsupported file type: %s, expected audio", declaredType))
			return
		}
		h.logger.Warn("Received file with unexpected content type",
			slog.String("profile_id", profileID),
			slog.String("content_type", declaredType),
		)
	}

	content, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error("Failed to read uploaded audio",
			slog.String("profile_id", profileID),
			slog.String("error", err.Error()),
		)
		h.writeError(w, http.StatusInternalServerError, "an unexpected error occurred while reading the upload")
		return
	}

	if len(content) == 0 {
		h.logger.Error("Received empty audio file", slog.String("profile_id", profileID))
		h.writeError(w, http.StatusBadRequest, "audio file is empty")
		return
	}

	h.metrics.RecordAudioUpload(len(content))

	if !audio.IsM4A(content) {
		if h.config.Recognition.StrictContentType {
			h.writeError(w, http.StatusUnsupportedMediaType, "upload is not an M4A/MP4 audio container")
			return
		}
		h.logger.Warn("Upload does not look like an M4A container",
			slog.String("profile_id", profileID),
		)
	}

	h.metrics.RecordTranscriptionRequest()
	startTime := time.Now()

	transcript, err := h.transcriber.Transcribe(r.Context(), content, profileID)
	if err != nil {
		h.metrics.RecordTranscriptionFailure(time.Since(startTime).Seconds())

		var terr *transcription.Error
		if errors.As(err, &terr) {
			h.logger.Error("Transcription failed",
				slog.String("profile_id", profileID),
				slog.String("kind", terr.Kind.String()),
				slog.String("error", terr.Error()),
			)
			h.writeError(w, terr.HTTPStatus(), terr.Message)
			return
		}

		// Unclassified fault: generic message out, full detail stays in the logs.
		h.logger.Error("Unexpected transcription failure",
			slog.String("profile_id", profileID),
			slog.String("error", err.Error()),
		)
		h.writeError(w, http.StatusInternalServerError, "an unexpected error occurred")
		return
	}

	h.metrics.RecordTranscriptionSuccess(time.Since(startTime).Seconds())

	h.logger.Info("Successfully generated transcript",
		slog.String("profile_id", profileID),
		slog.Int("transcript_length", len(transcript)),
	)

	h.writeJSON(w, http.StatusOK, map[string]string{"transcript": transcript})
}

// handleConfig implements the /config endpoint
func (h *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	// Return sanitized configuration (remove sensitive data)
	sanitizedConfig := map[string]interface{}{
		"http": map[string]interface{}{
			"port":            h.config.HTTP.Port,
			"address":         h.config.HTTP.Address,
			"max_upload_size": h.config.HTTP.MaxUploadSize,
			"read_timeout":    h.config.HTTP.ReadTimeout,
			"write_timeout":   h.config.HTTP.WriteTimeout,
		},
		"recognition": map[string]interface{}{
			"recognizer":          h.config.Recognition.RecognizerName,
			"language_code":       h.config.Recognition.LanguageCode,
			"model":               h.config.Recognition.Model,
			"timeout":             h.config.Recognition.Timeout,
			"strict_content_type": h.config.Recognition.StrictContentType,
			// Note: credentials path and API key are intentionally omitted
		},
		"logging": map[string]interface{}{
			"level":  h.config.Logging.Level,
			"format": h.config.Logging.Format,
			"output": h.config.Logging.Output,
		},
	}

	h.writeJSON(w, http.StatusOK, sanitizedConfig)
}

// handleStats implements the /stats endpoint
func (h *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	uptime := time.Since(h.startTime)

	stats := map[string]interface{}{
		"uptime":    uptime.String(),
		"timestamp": time.Now().UTC(),
	}

	if source, ok := h.transcriber.(StatsSource); ok {
		stats["transcription"] = source.GetStats()
	}

	h.writeJSON(w, http.StatusOK, stats)
}

// handleRoot implements the / endpoint with API documentation
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	apiDoc := map[string]interface{}{
		"service": "Speech Transcription Service",
		"version": "1.0.0",
		"endpoints": map[string]interface{}{
			"GET /":            "API documentation",
			"GET /health":      "Service health check",
			"POST /transcribe": "Transcribe an uploaded M4A audio file (requires X-API-Key)",
			"GET /config":      "Get service configuration",
			"GET /stats":       "Get service statistics",
			"GET /metrics":     "Prometheus metrics",
		},
		"timestamp": time.Now().UTC(),
	}

	h.writeJSON(w, http.StatusOK, apiDoc)
}
