package prompts

import (
	"fmt"

	"github.com/soundprediction/percorso/pkg/nlp"
	"github.com/soundprediction/percorso/pkg/types"
)

// SufficiencyPrompt defines the interface for evidence sufficiency prompts.
type SufficiencyPrompt interface {
	Judge() PromptVersion
}

// SufficiencyVersions holds all versions of sufficiency prompts.
type SufficiencyVersions struct {
	judgePrompt PromptVersion
}

func (s *SufficiencyVersions) Judge() PromptVersion { return s.judgePrompt }

// judgeSufficiencyPrompt asks whether the retrieved triples can answer the
// question. The evidence is the ". "-joined list of "(head, relation, tail)"
// renderings of the candidate paths.
func judgeSufficiencyPrompt(context map[string]interface{}) ([]types.Message, error) {
	sysPrompt := `You are an AI assistant that judges whether retrieved knowledge triples contain enough information to answer a question.`

	question := stringFrom(context, "question")
	evidence := stringFrom(context, "evidence")

	userPrompt := fmt.Sprintf(`<QUESTION>
%s
</QUESTION>

<KNOWLEDGE TRIPLES>
%s
</KNOWLEDGE TRIPLES>

Decide whether the knowledge triples are sufficient to answer the question.

Guidelines:
1. Judge only from the triples above; do not rely on outside knowledge.
2. The triples are sufficient only if they directly support a complete answer.
3. Partial or merely related evidence is not sufficient.
4. Respond with a JSON object of the form {"sufficient": true, "reason": "..."} or {"sufficient": false, "reason": "..."}.
`, question, evidence)

	logPrompts(loggerFrom(context), sysPrompt, userPrompt)
	return []types.Message{
		nlp.NewSystemMessage(sysPrompt),
		nlp.NewUserMessage(userPrompt),
	}, nil
}

// NewSufficiencyVersions creates a new SufficiencyVersions instance.
func NewSufficiencyVersions() *SufficiencyVersions {
	return &SufficiencyVersions{
		judgePrompt: NewPromptVersion(judgeSufficiencyPrompt),
	}
}
