package ai

import "strings"

var geminiModels = []string{
	// 2.5 generation
	"gemini-2.5-flash",
	"gemini-2.5-pro",
	"gemini-2.5-flash-lite",
	// 2.0 generation
	"gemini-2.0-flash",
	// 1.x generation
	"gemini-1.5-flash",
	"gemini-1.5-pro",
	"gemini-1.0-pro",
	"gemini-pro",
}

// DefaultGeminiChain returns the ranked Gemini candidates: every model under v1beta first,
// then the same list mirrored under v1 because some keys only surface models there.
func DefaultGeminiChain() []Candidate {
	return MirrorChain(geminiModels, APIVersionV1Beta, APIVersionV1)
}

// MirrorChain expands models across the given API versions, version-major.
func MirrorChain(models []string, versions ...APIVersion) []Candidate {
	chain := make([]Candidate, 0, len(models)*len(versions))
	for _, version := range versions {
		for _, model := range models {
			model = strings.TrimSpace(model)
			if model == "" {
				continue
			}
			chain = append(chain, Candidate{APIVersion: version, Model: model})
		}
	}
	return chain
}
