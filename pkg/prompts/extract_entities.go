package prompts

import (
	"fmt"
	"strings"

	"github.com/soundprediction/percorso/pkg/nlp"
	"github.com/soundprediction/percorso/pkg/types"
)

// EntityExtractionPrompt defines the interface for entity extraction prompts.
type EntityExtractionPrompt interface {
	Extract() PromptVersion
}

// EntityExtractionVersions holds all versions of entity extraction prompts.
type EntityExtractionVersions struct {
	extractPrompt PromptVersion
}

func (e *EntityExtractionVersions) Extract() PromptVersion { return e.extractPrompt }

// extractEntitiesPrompt extracts the topic entities of a question.
func extractEntitiesPrompt(context map[string]interface{}) ([]types.Message, error) {
	sysPrompt := `You are an AI assistant that extracts the topic entities of a question.
Your task is to identify the named entities and concepts a knowledge graph lookup should start from.`

	question := stringFrom(context, "question")

	var labelSection string
	if labels, ok := context["labels"].([]string); ok && len(labels) > 0 {
		labelSection = fmt.Sprintf(`
<ENTITY TYPES>
%s
</ENTITY TYPES>
`, strings.Join(labels, ", "))
	}

	userPrompt := fmt.Sprintf(`<QUESTION>
%s
</QUESTION>
%s
Extract the entities the question is about.

Guidelines:
1. Use the exact surface form from the question for each entity.
2. Do not extract pronouns, question words, dates, or bare quantities.
3. Order entities from most to least central to the question.
4. If the question names no entities, return an empty list.
5. Respond with a JSON object of the form {"entities": ["entity one", "entity two"]}.
`, question, labelSection)

	logPrompts(loggerFrom(context), sysPrompt, userPrompt)
	return []types.Message{
		nlp.NewSystemMessage(sysPrompt),
		nlp.NewUserMessage(userPrompt),
	}, nil
}

// NewEntityExtractionVersions creates a new EntityExtractionVersions instance.
func NewEntityExtractionVersions() *EntityExtractionVersions {
	return &EntityExtractionVersions{
		extractPrompt: NewPromptVersion(extractEntitiesPrompt),
	}
}
