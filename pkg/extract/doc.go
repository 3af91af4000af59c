// Package extract identifies the topic entities of a natural language
// question. The retriever seeds its graph exploration from these entities,
// so extraction quality bounds what the walk can reach.
//
// Four providers implement Extractor: an LLM-backed extractor that prompts
// a chat model, a GLiNER span extractor running a local ONNX model, a
// RustBert named entity recognizer, and a client for remote GLiNER-style
// HTTP services. New builds the provider named by an ExtractorConfig.
package extract
