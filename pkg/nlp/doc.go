// Package nlp provides language model clients used by the retrieval engine.
//
// The package defines the Client interface and an implementation for OpenAI
// and OpenAI-compatible APIs (Ollama, vLLM, LM Studio, etc.).
//
// # Client Wrappers
//
// The package provides several wrapper clients for enhanced functionality:
//   - RetryClient: Automatic retry with exponential backoff
//   - CircuitBreakerClient: Circuit breaker pattern for fault tolerance
//   - TokenTrackingClient: Track per-call token usage to Parquet files
//
// Wrappers compose, so a production client is typically built as:
//
//	base, err := nlp.NewOpenAIClient(apiKey, cfg)
//	client := nlp.NewTokenTrackingClient(
//		nlp.NewCircuitBreakerClient(
//			nlp.NewRetryClient(base, nil),
//			cbCfg, alerter, "default"),
//		tracker)
//
// # Error Handling
//
// The package defines specific error types for common failure modes:
//   - RateLimitError: API rate limit exceeded
//   - RefusalError: Model refused to generate content
//   - EmptyResponseError: Model returned an empty response
//
// These errors support errors.Is() for type checking.
package nlp
