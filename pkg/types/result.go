package types

// ProvenancePlaceholder marks provenance entries when no synthesized
// answer was produced (no triples, or synthesis disabled).
const ProvenancePlaceholder = "N/A"

// RetrievalResult is the terminal output of one retrieval call.
type RetrievalResult struct {
	// Query is the question that was answered.
	Query string `json:"query"`
	// Answer is the synthesized prose, or the newline-joined triple
	// strings when synthesis was skipped or failed.
	Answer string `json:"answer"`
	// Provenance lists the triple strings backing the answer, or
	// ProvenancePlaceholder entries when there are none.
	Provenance []string `json:"provenance"`
	// Paths holds the final candidate set the answer was derived from.
	Paths []Path `json:"paths,omitempty"`
	// Rounds is the number of search/prune/reason rounds performed.
	Rounds int `json:"rounds"`
	// Sufficient reports whether the oracle ever accepted the evidence;
	// false means the answer is the best effort after the depth budget.
	Sufficient bool `json:"sufficient"`
}
