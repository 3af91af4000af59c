package types

// Role identifies the author of a chat message.
type Role string

// Message is a single chat message sent to the reasoning service.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Response is the reasoning service's reply to a chat request.
type Response struct {
	// Content is the raw response text.
	Content string `json:"content"`
	// FinishReason reports why generation stopped, when the provider says.
	FinishReason string `json:"finish_reason,omitempty"`
	// Model is the model that produced the response.
	Model string `json:"model,omitempty"`
	// TokensUsed is set when the provider reports usage.
	TokensUsed *TokenUsage `json:"tokens_used,omitempty"`
}

// TokenUsage reports token consumption for one reasoning call.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
