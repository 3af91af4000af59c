package prompts

import (
	"fmt"
	"strings"

	"github.com/soundprediction/percorso/pkg/nlp"
	"github.com/soundprediction/percorso/pkg/types"
)

// AnswerPrompt defines the interface for answer composition prompts.
type AnswerPrompt interface {
	Compose() PromptVersion
}

// AnswerVersions holds all versions of answer prompts.
type AnswerVersions struct {
	composePrompt PromptVersion
}

func (a *AnswerVersions) Compose() PromptVersion { return a.composePrompt }

// composeAnswerPrompt builds the final answer prompt from the question and
// the retrieved triples, numbered so the answer can reference them.
func composeAnswerPrompt(context map[string]interface{}) ([]types.Message, error) {
	sysPrompt := `You are an AI assistant that answers questions using retrieved knowledge triples.
Base your answer only on the provided triples.`

	question := stringFrom(context, "question")

	triples, ok := context["triples"].([]string)
	if !ok {
		return nil, fmt.Errorf("answer prompt requires a triples list")
	}

	var numbered strings.Builder
	for i, triple := range triples {
		fmt.Fprintf(&numbered, "%d. %s\n", i+1, triple)
	}

	userPrompt := fmt.Sprintf(`<QUESTION>
%s
</QUESTION>

<KNOWLEDGE TRIPLES>
%s</KNOWLEDGE TRIPLES>

Answer the question using the knowledge triples above.

Guidelines:
1. Use only the triples as evidence; do not invent facts.
2. Answer concisely in complete sentences.
3. If the triples cannot fully answer the question, give the best supported partial answer and say what is missing.
`, question, numbered.String())

	logPrompts(loggerFrom(context), sysPrompt, userPrompt)
	return []types.Message{
		nlp.NewSystemMessage(sysPrompt),
		nlp.NewUserMessage(userPrompt),
	}, nil
}

// NewAnswerVersions creates a new AnswerVersions instance.
func NewAnswerVersions() *AnswerVersions {
	return &AnswerVersions{
		composePrompt: NewPromptVersion(composeAnswerPrompt),
	}
}
