package retriever

import (
	"context"
	"fmt"
	"strings"

	"github.com/soundprediction/percorso/pkg/nlp"
	"github.com/soundprediction/percorso/pkg/prompts"
	"github.com/soundprediction/percorso/pkg/types"
)

// judgeSufficiency asks the reasoning client whether the current evidence
// answers the query. The reply is requested as a structured verdict; a
// reply that ignores the schema falls back to a substring heuristic, and
// anything still indeterminate counts as insufficient. Only transport
// failures return an error.
func (r *Retriever) judgeSufficiency(ctx context.Context, query string, paths []types.Path, res *resolver) (bool, error) {
	triples := flattenTriples(paths, res.display)
	evidence := strings.Join(types.TripleStrings(triples), ". ")

	messages, err := r.sufficiency.Judge().Call(map[string]interface{}{
		"question": query,
		"evidence": evidence,
		"logger":   r.logger,
	})
	if err != nil {
		return false, fmt.Errorf("building sufficiency prompt: %w", err)
	}

	callCtx, cancel := r.phaseCtx(ctx, "reason")
	defer cancel()
	resp, err := r.client.ChatWithStructuredOutput(callCtx, messages, prompts.SufficiencyVerdict{})
	if err != nil {
		return false, fmt.Errorf("sufficiency call failed: %w", err)
	}

	var verdict prompts.SufficiencyVerdict
	if err := nlp.UnmarshalLenient(resp.Content, &verdict); err == nil {
		r.logger.Debug("sufficiency verdict",
			"sufficient", verdict.Sufficient,
			"reason", verdict.Reason,
		)
		return verdict.Sufficient, nil
	}

	r.logger.Debug("sufficiency reply ignored the schema, using substring heuristic",
		"content", resp.Content,
	)
	return strings.Contains(strings.ToLower(resp.Content), "yes"), nil
}
