package prompts

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/soundprediction/percorso/pkg/nlp"
	"github.com/soundprediction/percorso/pkg/types"
)

// PromptFunction builds chat messages from a generic context map.
type PromptFunction func(context map[string]interface{}) ([]types.Message, error)

// PromptVersion is one callable variant of a prompt.
type PromptVersion interface {
	Call(context map[string]interface{}) ([]types.Message, error)
}

// promptVersionImpl implements PromptVersion.
type promptVersionImpl struct {
	fn PromptFunction
}

// Call executes the prompt function with the given context.
func (p *promptVersionImpl) Call(context map[string]interface{}) ([]types.Message, error) {
	messages, err := p.fn(context)
	if err != nil {
		return nil, err
	}

	// Add unicode preservation instruction to system messages
	for i, msg := range messages {
		if msg.Role == nlp.RoleSystem {
			messages[i].Content += "\nDo not escape unicode characters.\n"
		}
	}

	return messages, nil
}

// NewPromptVersion creates a new PromptVersion from a function.
func NewPromptVersion(fn PromptFunction) PromptVersion {
	return &promptVersionImpl{fn: fn}
}

// stringFrom reads a string value from a prompt context map.
func stringFrom(context map[string]interface{}, key string) string {
	if v, ok := context[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprintf("%v", v)
	}
	return ""
}

// loggerFrom returns the logger carried in the prompt context, if any.
func loggerFrom(context map[string]interface{}) *slog.Logger {
	if v, ok := context["logger"]; ok {
		if logger, ok := v.(*slog.Logger); ok && logger != nil {
			return logger
		}
	}
	return slog.Default()
}

// logPrompts prints the generated prompts when DEBUG_LLM_PROMPTS is set.
// Newlines are preserved so multi-line prompts stay readable.
func logPrompts(logger *slog.Logger, sysPrompt, userPrompt string) {
	if os.Getenv("DEBUG_LLM_PROMPTS") != "true" {
		return
	}

	logger.Debug("Generated prompts - System Prompt follows")
	fmt.Println("=== SYSTEM PROMPT ===")
	fmt.Println(sysPrompt)
	logger.Debug("Generated prompts - User Prompt follows")
	fmt.Println("=== USER PROMPT ===")
	fmt.Println(userPrompt)
	fmt.Println("=== END PROMPTS ===")
}

// LogResponses prints a raw model response when DEBUG_LLM_PROMPTS is set.
func LogResponses(logger *slog.Logger, response types.Response) {
	if os.Getenv("DEBUG_LLM_PROMPTS") != "true" {
		return
	}

	logger.Debug("LLM response follows")
	fmt.Println("=== LLM response ===")
	fmt.Println(response.Content)
	fmt.Println("=== END LLM response ===")
}
