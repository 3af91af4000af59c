package retriever

import (
	"context"
	"strings"

	"github.com/soundprediction/percorso/pkg/nlp"
	"github.com/soundprediction/percorso/pkg/types"
)

// generate renders the final answer from the terminal path set. It never
// returns an error: with no triples, with synthesis disabled, or when the
// composition call fails, the answer degrades to the newline-joined triple
// strings with placeholder provenance.
func (r *Retriever) generate(ctx context.Context, query string, paths []types.Path, synthesize bool, res *resolver) (string, []string) {
	if err := res.resolve(ctx, paths); err != nil {
		r.logger.Warn("resolving display texts for the answer failed, using identifiers", "error", err)
	}
	triples := flattenTriples(paths, res.display)

	if len(triples) == 0 || !synthesize {
		return fallbackAnswer(triples)
	}

	tripleStrings := types.TripleStrings(triples)
	messages, err := r.answers.Compose().Call(map[string]interface{}{
		"question": query,
		"triples":  tripleStrings,
		"logger":   r.logger,
	})
	if err != nil {
		r.logger.Warn("building answer prompt failed, returning raw evidence", "error", err)
		return fallbackAnswer(triples)
	}

	callCtx, cancel := r.phaseCtx(ctx, "generate")
	defer cancel()
	resp, err := r.client.Chat(callCtx, messages)
	if err != nil {
		r.logger.Warn("answer synthesis failed, returning raw evidence", "error", err)
		return fallbackAnswer(triples)
	}

	answer := strings.TrimSpace(nlp.RemoveThinkTags(resp.Content))
	if answer == "" {
		return fallbackAnswer(triples)
	}
	return answer, tripleStrings
}

// fallbackAnswer answers with the evidence itself: newline-joined triple
// strings, and provenance placeholders marking that nothing was
// synthesized.
func fallbackAnswer(triples []types.Triple) (string, []string) {
	tripleStrings := types.TripleStrings(triples)
	provenance := make([]string, len(tripleStrings))
	for i := range provenance {
		provenance[i] = types.ProvenancePlaceholder
	}
	return strings.Join(tripleStrings, "\n"), provenance
}
