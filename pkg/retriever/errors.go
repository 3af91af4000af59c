package retriever

import (
	"errors"
	"fmt"
)

// ErrRetrievalUnavailable matches every RetrievalUnavailableError through
// errors.Is, so callers can test the condition without naming the type.
var ErrRetrievalUnavailable = errors.New("retrieval unavailable")

// RetrievalUnavailableError reports that a backing dependency failed in a
// way that makes answering this call impossible. Callers should abort the
// query rather than fall back to an empty or misleading answer.
type RetrievalUnavailableError struct {
	// Component names the failed dependency: store, embedder, index, or
	// oracle.
	Component string
	Err       error
}

func (e *RetrievalUnavailableError) Error() string {
	return fmt.Sprintf("retrieval unavailable: %s: %v", e.Component, e.Err)
}

func (e *RetrievalUnavailableError) Unwrap() error { return e.Err }

func (e *RetrievalUnavailableError) Is(target error) bool {
	return target == ErrRetrievalUnavailable
}

func unavailable(component string, err error) error {
	return &RetrievalUnavailableError{Component: component, Err: err}
}

// NumericError reports a numeric degeneracy while scoring paths, such as a
// zero-norm embedding that would otherwise turn into NaN similarities.
type NumericError struct {
	// Op describes the computation that degenerated.
	Op  string
	Err error
}

func (e *NumericError) Error() string {
	return fmt.Sprintf("numeric error in %s: %v", e.Op, e.Err)
}

func (e *NumericError) Unwrap() error { return e.Err }
