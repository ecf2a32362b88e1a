// Package prompt turns a normalized generation request, its randomized params and
// the store's tables into the system and user prompts sent to the completion API.
package prompt

import (
	"github.com/yourorg/reviewgen/internal/params"
	"github.com/yourorg/reviewgen/internal/stores"
	"github.com/yourorg/reviewgen/pkg/types"
)

// Source is the randomness the assembler needs for paraphrase picks and the
// staff shout-out coin flip. *params.Randomizer satisfies it.
type Source interface {
	IntN(n int) int
	Float64() float64
}

// Prompt is one assembled request for the completion API.
type Prompt struct {
	System   string         `json:"system"`
	User     string         `json:"user"`
	Sampling types.Sampling `json:"sampling"`
}

// Sampling settings per language. The Japanese path adds repetition penalties.
var (
	SamplingJA = types.Sampling{Temperature: 0.95, TopP: 0.95, MaxTokens: 300, FrequencyPenalty: 0.4, PresencePenalty: 0.4}
	SamplingEN = types.Sampling{Temperature: 0.9, TopP: 0.95, MaxTokens: 500}
)

type Assembler struct {
	src Source
}

func New(src Source) *Assembler {
	return &Assembler{src: src}
}

// Build assembles the prompt. req must already carry canonical labels; Build
// does not validate and never fails.
func (a *Assembler) Build(store stores.Store, req types.GenerationRequest, p params.Params) Prompt {
	if req.Language == types.LanguageEN {
		return a.english(store, req)
	}
	return a.japanese(store, req, p)
}

// Rephrase draws one paraphrase per keyword. Unknown keywords pass through.
func (a *Assembler) Rephrase(store stores.Store, keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		v := store.Variants(kw)
		out = append(out, v[a.src.IntN(len(v))])
	}
	return out
}

func (a *Assembler) mentionStaff(req types.GenerationRequest, p params.Params) bool {
	return req.HasStaff() && a.src.Float64() < p.StaffMentionRate
}
