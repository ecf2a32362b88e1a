package types

import (
	"strings"
	"time"
)

// Language selects the prompt template and the language of user-facing messages.
type Language string

const (
	LanguageJA Language = "ja"
	LanguageEN Language = "en"
)

// Canonical option labels. Requests may also carry a store's English labels,
// which are mapped onto these before prompt assembly.
const (
	GenderMale   = "男性"
	GenderFemale = "女性"

	VisitLocal   = "地元"
	VisitTourist = "観光"

	CompanionFriends = "友達"
)

// GenerationRequest is one "draft my review" action from the form.
type GenerationRequest struct {
	Keywords  []string `json:"keywords"`
	StaffName string   `json:"staffName,omitempty"`
	Rating    int      `json:"rating"`
	Companion string   `json:"companion,omitempty"`
	Gender    string   `json:"gender,omitempty"`
	VisitType string   `json:"visitType,omitempty"`
	Language  Language `json:"language,omitempty"`
	ClientID  string   `json:"clientId,omitempty"`
	StoreID   string   `json:"storeId,omitempty"`
}

// HasStaff reports whether a staff name or descriptor was supplied.
func (r GenerationRequest) HasStaff() bool {
	return strings.TrimSpace(r.StaffName) != ""
}

// Sampling carries the completion API's sampling knobs. Zero penalties are omitted.
type Sampling struct {
	Model            string  `json:"model,omitempty"`
	Temperature      float32 `json:"temperature"`
	TopP             float32 `json:"topP"`
	MaxTokens        int     `json:"maxTokens"`
	FrequencyPenalty float32 `json:"frequencyPenalty,omitempty"`
	PresencePenalty  float32 `json:"presencePenalty,omitempty"`
}

// ReviewResponse is returned by POST /api/reviews.
type ReviewResponse struct {
	Review  string `json:"review"`
	StoreID string `json:"storeId"`
	MapsURL string `json:"mapsUrl,omitempty"`
}

// ErrorResponse is the JSON body of every non-2xx API response.
type ErrorResponse struct {
	Error       string `json:"error"`
	Kind        string `json:"kind,omitempty"`
	WaitSeconds int    `json:"waitSeconds,omitempty"`
}

// SessionResponse is returned by POST /api/session.
type SessionResponse struct {
	Token     string    `json:"token"`
	ClientID  string    `json:"clientId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// OutcomeCount is one row of a generation stats summary.
type OutcomeCount struct {
	StoreID string `json:"storeId"`
	Outcome string `json:"outcome"`
	Count   int64  `json:"count"`
}

// StatsSummary aggregates recorded generation outcomes.
type StatsSummary struct {
	Total  int64          `json:"total"`
	Counts []OutcomeCount `json:"counts"`
}
