package prompts

// ExtractedEntities is the expected shape of an entity extraction response.
type ExtractedEntities struct {
	Entities []string `json:"entities"`
}

// SufficiencyVerdict is the expected shape of a sufficiency judgment.
// Reason is free text explaining the verdict; it is logged, never parsed.
type SufficiencyVerdict struct {
	Sufficient bool   `json:"sufficient"`
	Reason     string `json:"reason"`
}
