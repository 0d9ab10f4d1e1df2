package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/querypilot/engine/pkg/apperrors"
	"github.com/querypilot/engine/pkg/cache"
	"github.com/querypilot/engine/pkg/datasource"
	"github.com/querypilot/engine/pkg/models"
	"github.com/querypilot/engine/pkg/services"
)

// SyncRequest is the body of POST /api/sync-schema. Async runs the
// ingestion in the background and returns a pollable job ID.
type SyncRequest struct {
	Async      bool               `json:"async"`
	Connection *ConnectionRequest `json:"connection,omitempty"`
}

// SyncResponse is returned for an async sync request.
type SyncResponse struct {
	JobID  string          `json:"job_id"`
	Status models.JobState `json:"status"`
}

// SchemaHandler handles schema ingestion and job status endpoints.
type SchemaHandler struct {
	ingestion services.SchemaIngestion
	cache     *cache.Cache
	conn      *datasource.ConnectionConfig
	logger    *zap.Logger
}

// NewSchemaHandler creates a new SchemaHandler for the configured datasource.
func NewSchemaHandler(ingestion services.SchemaIngestion, c *cache.Cache, conn *datasource.ConnectionConfig, logger *zap.Logger) *SchemaHandler {
	return &SchemaHandler{ingestion: ingestion, cache: c, conn: conn, logger: logger}
}

// RegisterRoutes registers the schema handler's routes on the given mux.
func (h *SchemaHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/sync-schema", h.SyncSchema)
	mux.HandleFunc("/api/sync-status", h.SyncStatus)
}

// SyncSchema handles POST /api/sync-schema requests.
// Re-ingests the datasource schema, replacing the previous index contents.
func (h *SchemaHandler) SyncSchema(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		_ = ErrorResponse(w, http.StatusMethodNotAllowed, "method_not_allowed", "POST required")
		return
	}

	var req SyncRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
			return
		}
	}

	conn := req.Connection.resolve(h.conn)

	if req.Async {
		jobID := services.NewJobID()
		h.ingestion.IngestAsync(conn, jobID)
		if err := WriteJSON(w, http.StatusAccepted, SyncResponse{JobID: jobID, Status: models.JobRunning}); err != nil {
			h.logger.Error("Failed to encode sync response", zap.Error(err))
		}
		return
	}

	result, err := h.ingestion.Ingest(r.Context(), conn)
	if err != nil {
		h.logger.Error("Schema sync failed", zap.Error(err))
		_ = ErrorResponse(w, http.StatusBadGateway, "sync_failed", err.Error())
		return
	}

	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("Failed to encode sync result", zap.Error(err))
	}
}

// SyncStatus handles GET /api/sync-status?job_id=... requests.
func (h *SchemaHandler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		_ = ErrorResponse(w, http.StatusMethodNotAllowed, "method_not_allowed", "GET required")
		return
	}

	jobID := r.URL.Query().Get("job_id")
	if jobID == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "job_id query parameter is required")
		return
	}

	status, ok := h.cache.GetJob(r.Context(), jobID)
	if !ok {
		_ = ErrorResponse(w, http.StatusNotFound, "job_not_found", apperrors.ErrJobNotFound.Error())
		return
	}

	if err := WriteJSON(w, http.StatusOK, status); err != nil {
		h.logger.Error("Failed to encode job status", zap.Error(err))
	}
}
