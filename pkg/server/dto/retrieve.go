package dto

import (
	"errors"
	"strings"
)

// Validation errors
var (
	ErrEmptyQuestion   = errors.New("question cannot be empty")
	ErrQuestionTooLong = errors.New("question exceeds maximum length")
	ErrDepthOutOfRange = errors.New("max_depth must be between 0 and 16")
	ErrTopNOutOfRange  = errors.New("top_n must be between 1 and 100")
)

// Request limits
const (
	MaxQuestionLength = 8192
	MaxDepthLimit     = 16
	MaxTopNLimit      = 100
)

// RetrieveRequest asks for a retrieval pass over the knowledge graph.
// The optional fields override the server's configured search bounds
// for this request only.
type RetrieveRequest struct {
	Question   string `json:"question" binding:"required"`
	MaxDepth   *int   `json:"max_depth,omitempty"`
	TopN       *int   `json:"top_n,omitempty"`
	Synthesize *bool  `json:"synthesize,omitempty"`
}

// Validate performs validation on RetrieveRequest
func (r *RetrieveRequest) Validate() error {
	if strings.TrimSpace(r.Question) == "" {
		return ErrEmptyQuestion
	}
	if len(r.Question) > MaxQuestionLength {
		return ErrQuestionTooLong
	}
	if r.MaxDepth != nil && (*r.MaxDepth < 0 || *r.MaxDepth > MaxDepthLimit) {
		return ErrDepthOutOfRange
	}
	if r.TopN != nil && (*r.TopN < 1 || *r.TopN > MaxTopNLimit) {
		return ErrTopNOutOfRange
	}
	return nil
}

// RetrieveResponse carries the full retrieval result, including the
// reasoning paths the search walked and the number of expansion rounds.
type RetrieveResponse struct {
	Query      string     `json:"query"`
	Answer     string     `json:"answer"`
	Provenance []string   `json:"provenance"`
	Paths      [][]string `json:"paths,omitempty"`
	Rounds     int        `json:"rounds"`
	Sufficient bool       `json:"sufficient"`
}

// AnswerResponse carries only the answer and the triples that support it.
type AnswerResponse struct {
	Query      string   `json:"query"`
	Answer     string   `json:"answer"`
	Provenance []string `json:"provenance"`
	Sufficient bool     `json:"sufficient"`
}

// EntitiesRequest asks which entities a question would anchor the search on.
type EntitiesRequest struct {
	Question string `json:"question" binding:"required"`
}

// Validate performs validation on EntitiesRequest
func (r *EntitiesRequest) Validate() error {
	if strings.TrimSpace(r.Question) == "" {
		return ErrEmptyQuestion
	}
	if len(r.Question) > MaxQuestionLength {
		return ErrQuestionTooLong
	}
	return nil
}

// EntitiesResponse lists the seed entities extracted from a question.
type EntitiesResponse struct {
	Query    string   `json:"query"`
	Entities []string `json:"entities"`
}
