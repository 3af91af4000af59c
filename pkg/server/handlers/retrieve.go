package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/soundprediction/percorso"
	"github.com/soundprediction/percorso/pkg/retriever"
	"github.com/soundprediction/percorso/pkg/server/dto"
	"github.com/soundprediction/percorso/pkg/types"
)

// RetrieveHandler handles question answering requests
type RetrieveHandler struct {
	client percorso.QuestionAnswerer
}

// NewRetrieveHandler creates a new retrieve handler
func NewRetrieveHandler(client percorso.QuestionAnswerer) *RetrieveHandler {
	return &RetrieveHandler{
		client: client,
	}
}

// Retrieve handles POST /v1/retrieve. It returns the full retrieval
// result, including the reasoning paths and the number of rounds.
func (h *RetrieveHandler) Retrieve(c *gin.Context) {
	req, ok := h.bindRetrieveRequest(c)
	if !ok {
		return
	}

	result, err := h.client.Retrieve(c.Request.Context(), req.Question, retrieveOptions(req))
	if err != nil {
		writeRetrievalError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.RetrieveResponse{
		Query:      result.Query,
		Answer:     result.Answer,
		Provenance: result.Provenance,
		Paths:      pathsToWire(result.Paths),
		Rounds:     result.Rounds,
		Sufficient: result.Sufficient,
	})
}

// Answer handles POST /v1/answer. It runs the same retrieval as
// /v1/retrieve but strips the response down to the answer and the
// triples that support it.
func (h *RetrieveHandler) Answer(c *gin.Context) {
	req, ok := h.bindRetrieveRequest(c)
	if !ok {
		return
	}

	result, err := h.client.Retrieve(c.Request.Context(), req.Question, retrieveOptions(req))
	if err != nil {
		writeRetrievalError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.AnswerResponse{
		Query:      result.Query,
		Answer:     result.Answer,
		Provenance: result.Provenance,
		Sufficient: result.Sufficient,
	})
}

// Entities handles POST /v1/entities. It exposes the seeding step on
// its own so callers can inspect which entities a question anchors on.
func (h *RetrieveHandler) Entities(c *gin.Context) {
	if h.client == nil {
		writeError(c, http.StatusServiceUnavailable, "not_initialized", "retrieval client not initialized")
		return
	}

	var req dto.EntitiesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	entities, err := h.client.SeedEntities(c.Request.Context(), req.Question)
	if err != nil {
		writeRetrievalError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.EntitiesResponse{
		Query:    req.Question,
		Entities: entities,
	})
}

// bindRetrieveRequest decodes and validates the shared request body of
// /v1/retrieve and /v1/answer, writing the error response itself when
// the request cannot proceed.
func (h *RetrieveHandler) bindRetrieveRequest(c *gin.Context) (*dto.RetrieveRequest, bool) {
	if h.client == nil {
		writeError(c, http.StatusServiceUnavailable, "not_initialized", "retrieval client not initialized")
		return nil, false
	}

	var req dto.RetrieveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return nil, false
	}
	if err := req.Validate(); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return nil, false
	}
	return &req, true
}

// pathsToWire flattens the typed retrieval paths into plain string
// slices for the response body.
func pathsToWire(paths []types.Path) [][]string {
	if len(paths) == 0 {
		return nil
	}
	out := make([][]string, len(paths))
	for i, p := range paths {
		out[i] = []string(p)
	}
	return out
}

// retrieveOptions converts the optional request fields into per-call
// overrides, or nil when the request accepts the configured bounds.
func retrieveOptions(req *dto.RetrieveRequest) *percorso.RetrieveOptions {
	if req.MaxDepth == nil && req.TopN == nil && req.Synthesize == nil {
		return nil
	}
	return &percorso.RetrieveOptions{
		MaxDepth:   req.MaxDepth,
		TopN:       req.TopN,
		Synthesize: req.Synthesize,
	}
}

// writeError writes an error response
func writeError(c *gin.Context, status int, code, message string) {
	c.JSON(status, dto.ErrorResponse{
		Error:   code,
		Message: message,
		Code:    status,
	})
}

// writeRetrievalError maps retrieval failures onto HTTP statuses: a
// blank question is the caller's fault, a failed backing component is
// 503, anything else is 500.
func writeRetrievalError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, types.ErrEmptyQuery):
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, retriever.ErrRetrievalUnavailable):
		writeError(c, http.StatusServiceUnavailable, "retrieval_unavailable", err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "retrieval_failed", err.Error())
	}
}
