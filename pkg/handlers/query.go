package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/querypilot/engine/pkg/apperrors"
	"github.com/querypilot/engine/pkg/cache"
	"github.com/querypilot/engine/pkg/datasource"
	"github.com/querypilot/engine/pkg/models"
	"github.com/querypilot/engine/pkg/services"
	"github.com/querypilot/engine/pkg/vector"
)

// QueryRequest is the body of POST /api/query.
type QueryRequest struct {
	Question   string             `json:"question"`
	Connection *ConnectionRequest `json:"connection,omitempty"`
}

// QueryResponse is the envelope returned by POST /api/query. Results is
// set on the single-statement path, Tables on the fan-out path; an invalid
// statement carries neither.
type QueryResponse struct {
	SQL         string               `json:"sql"`
	Valid       bool                 `json:"valid"`
	Error       string               `json:"error,omitempty"`
	Intent      *models.QueryIntent  `json:"intent,omitempty"`
	ContextUsed string               `json:"context_used,omitempty"`
	Results     *models.QueryResult  `json:"results,omitempty"`
	Tables      []models.TableResult `json:"tables,omitempty"`
	Cached      bool                 `json:"cached"`
}

// QueryHandler handles natural-language query endpoints.
type QueryHandler struct {
	pipeline  services.QueryPipeline
	runner    services.QueryRunner
	formatter services.ResultFormatter
	registry  *vector.Registry
	cache     *cache.Cache
	conn      *datasource.ConnectionConfig
	logger    *zap.Logger
}

// NewQueryHandler creates a new QueryHandler for the configured datasource.
func NewQueryHandler(
	pipeline services.QueryPipeline,
	runner services.QueryRunner,
	formatter services.ResultFormatter,
	registry *vector.Registry,
	c *cache.Cache,
	conn *datasource.ConnectionConfig,
	logger *zap.Logger,
) *QueryHandler {
	return &QueryHandler{
		pipeline:  pipeline,
		runner:    runner,
		formatter: formatter,
		registry:  registry,
		cache:     c,
		conn:      conn,
		logger:    logger,
	}
}

// RegisterRoutes registers the query handler's routes on the given mux.
func (h *QueryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/query", h.Query)
}

// Query handles POST /api/query requests.
// Synthesizes SQL for the question and, when the statement passes
// validation, executes it and attaches the rows.
func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		_ = ErrorResponse(w, http.StatusMethodNotAllowed, "method_not_allowed", "POST required")
		return
	}

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "question is required")
		return
	}

	conn := req.Connection.resolve(h.conn)
	tenantKey := conn.Fingerprint()
	if !h.registry.Has(tenantKey) {
		_ = ErrorResponse(w, http.StatusConflict, "schema_not_synced",
			apperrors.ErrNoIndex.Error()+"; call /api/sync-schema first")
		return
	}

	result, cached := h.synthesize(w, r, conn, tenantKey, req.Question)
	if result == nil {
		return
	}

	response := &QueryResponse{
		SQL:         result.SQL,
		Valid:       result.Valid,
		Error:       result.Error,
		Intent:      result.Intent,
		ContextUsed: result.ContextUsed,
		Cached:      cached,
	}

	if result.Valid {
		h.execute(r, conn, req.Question, result, response)
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode query response", zap.Error(err))
	}
}

// synthesize returns the pipeline result for the question, serving a
// recent identical question from the response cache. A nil result means
// the error response has already been written.
func (h *QueryHandler) synthesize(w http.ResponseWriter, r *http.Request, conn *datasource.ConnectionConfig, tenantKey, question string) (*models.GenerateResult, bool) {
	hash := cache.QuestionHash(question)
	if result, ok := h.cache.GetResponse(r.Context(), tenantKey, hash); ok {
		return result, true
	}

	result, err := h.pipeline.Run(r.Context(), conn, question)
	if err != nil {
		h.logger.Error("Query synthesis failed", zap.Error(err))
		_ = ErrorResponse(w, http.StatusBadGateway, "synthesis_failed", err.Error())
		return nil, false
	}

	if result.Valid {
		h.cache.SetResponse(r.Context(), tenantKey, hash, result)
	}
	return result, false
}

// execute runs the validated statement(s) and attaches rows to the
// response. Execution failures degrade the response rather than fail it.
func (h *QueryHandler) execute(r *http.Request, conn *datasource.ConnectionConfig, question string, result *models.GenerateResult, response *QueryResponse) {
	if len(result.SQLList) > 0 {
		tables, err := h.runner.RunPerTable(r.Context(), conn, result.SQLList)
		if err != nil {
			h.logger.Warn("Fan-out execution failed", zap.Error(err))
			response.Error = err.Error()
			return
		}
		response.Tables = tables
		return
	}

	rows, err := h.runner.RunOne(r.Context(), conn, result.SQL)
	if err != nil {
		h.logger.Warn("Query execution failed", zap.Error(err))
		response.Error = err.Error()
		return
	}
	rows.Summary = h.formatter.Summarize(r.Context(), question, result.SQL, rows)
	response.Results = rows
}
