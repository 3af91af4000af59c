// Package prompts holds the prompt templates used by graph retrieval.
//
// Each prompt family is exposed as an interface returning PromptVersion
// values so callers can swap template variants without touching call sites.
// Prompt functions take a generic context map and return chat messages; the
// PromptVersion wrapper appends shared instructions to system messages.
//
// Three families are defined:
//
//   - EntityExtraction: pull topic entities out of a question.
//   - Sufficiency: judge whether retrieved triples can answer a question.
//   - Answer: compose a final answer from retrieved triples.
package prompts
