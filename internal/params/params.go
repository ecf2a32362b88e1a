// Package params draws the per-request stylistic knobs that shape a review prompt.
package params

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/yourorg/reviewgen/pkg/types"
)

// Style patterns.
const (
	StyleSimple     = "simple"
	StyleSatisfied  = "satisfied"
	StyleEvaluative = "evaluative"
	StyleRecommend  = "recommend"
	StyleNarrative  = "narrative"
)

// Comma styles.
const (
	CommaMinimal  = "minimal"
	CommaStandard = "standard"
	CommaChaotic  = "chaotic"
	CommaNone     = "none"
)

// Store-name placements.
const (
	PlaceBeginning = "beginning"
	PlaceMiddle    = "middle"
	PlaceEnd       = "end"
	PlaceNone      = "none"
)

var (
	Lengths           = []int{60, 70, 80, 90, 100, 120, 150}
	CommaStyles       = []string{CommaMinimal, CommaStandard, CommaChaotic, CommaNone}
	NarrativePatterns = []string{"の帰りに", "と行った", "の締めに", "で立ち寄った", "に行ってきた", "を訪れた"}
	OpeningPatterns   = []string{"行った", "行ってきた", "訪れた", "立ち寄った", "飲みに行った", "遊びに行った", "飲んでみた", "寄った", "はしごした"}
	SpatialWords      = []string{"店内", "カウンター", "入り口", "奥の方", "テーブル席"}
	StylePatterns     = []string{StyleSimple, StyleSatisfied, StyleEvaluative, StyleRecommend, StyleNarrative}

	StoreNamePositions = []string{PlaceBeginning, PlaceMiddle, PlaceEnd, PlaceNone}
	StoreNameWeights   = []float64{0.3, 0.3, 0.3, 0.1}

	dayNames = [7]string{"日曜", "月曜", "火曜", "水曜", "木曜", "金曜", "土曜"}
)

const (
	timeContextProbability = 0.2
	staffMentionWithStaff  = 0.9
)

// Params is one request's bundle of stylistic knobs. It is consumed once and discarded.
type Params struct {
	Length               int     `json:"length"`
	Tension              int     `json:"tension"`
	EmojiCount           int     `json:"emojiCount"`
	EmotionWordRatio     float64 `json:"emotionWordRatio"`
	IntensifierFrequency float64 `json:"intensifierFrequency"`
	GratitudeLevel       float64 `json:"gratitudeLevel"`
	ParticleOmission     float64 `json:"particleOmission"`
	CommaStyle           string  `json:"commaStyle"`
	NarrativePattern     string  `json:"narrativePattern"`
	IncludeTime          bool    `json:"includeTime"`
	TimeContext          string  `json:"timeContext"`
	IncludeSpatial       bool    `json:"includeSpatial"`
	SpatialWord          string  `json:"spatialWord"`
	StylePattern         string  `json:"stylePattern"`
	StaffMentionRate     float64 `json:"staffMentionRate"`
	StoreNamePosition    string  `json:"storeNamePosition"`
	OpeningPattern       string  `json:"openingPattern"`
}

// Randomizer draws Params. It is safe for concurrent use.
type Randomizer struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
	loc *time.Location
}

type Option func(*Randomizer)

// WithRand pins the random source.
func WithRand(r *rand.Rand) Option {
	return func(z *Randomizer) { z.rng = r }
}

// WithClock replaces time.Now for the time-context draw.
func WithClock(now func() time.Time) Option {
	return func(z *Randomizer) { z.now = now }
}

// WithLocation sets the zone business hours are evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(z *Randomizer) { z.loc = loc }
}

func New(opts ...Option) *Randomizer {
	z := &Randomizer{
		rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now: time.Now,
		loc: time.Local,
	}
	for _, o := range opts {
		o(z)
	}
	return z
}

// NewSeeded returns a Randomizer with a deterministic source, for tests and dry runs.
func NewSeeded(seed uint64, opts ...Option) *Randomizer {
	return New(append([]Option{WithRand(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))}, opts...)...)
}

// LoadLocation resolves a zone name, falling back to a fixed JST offset when the
// tz database is unavailable.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		if name == "Asia/Tokyo" {
			return time.FixedZone("JST", 9*60*60), nil
		}
		return nil, fmt.Errorf("load time zone %q: %w", name, err)
	}
	return loc, nil
}

// IntN returns a uniform int in [0, n).
func (z *Randomizer) IntN(n int) int {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.rng.IntN(n)
}

// Float64 returns a uniform float in [0, 1).
func (z *Randomizer) Float64() float64 {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.rng.Float64()
}

// Generate draws a fresh Params for the given gender, rating and staff flag.
// Ratings outside 1-5 are not validated; the tension range is clamped so the
// draw never panics.
func (z *Randomizer) Generate(gender string, rating int, hasStaff bool) Params {
	z.mu.Lock()
	defer z.mu.Unlock()

	female := gender == types.GenderFemale
	var p Params

	if female {
		p.Tension = z.between(max(3, rating), 5)
	} else {
		p.Tension = z.between(max(1, rating-1), min(3, rating))
	}
	p.Length = Lengths[z.rng.IntN(len(Lengths))]

	if female {
		p.EmojiCount = z.between(1, 3)
		p.EmotionWordRatio = z.uniform(0.08, 0.15)
		p.IntensifierFrequency = z.uniform(0.4, 0.7)
		p.GratitudeLevel = z.uniform(0.6, 0.9)
	} else {
		p.EmojiCount = z.between(0, 1)
		p.EmotionWordRatio = z.uniform(0.03, 0.07)
		p.IntensifierFrequency = z.uniform(0.1, 0.3)
		p.GratitudeLevel = z.uniform(0.2, 0.5)
	}

	p.ParticleOmission = z.uniform(0.15, 0.25)
	p.CommaStyle = z.pick(CommaStyles)
	p.NarrativePattern = z.pick(NarrativePatterns)

	p.IncludeTime = z.rng.Float64() < timeContextProbability
	if p.IncludeTime {
		p.TimeContext = z.timeContext()
	}

	// Spatial words stay switched off; the word is still drawn.
	p.IncludeSpatial = false
	p.SpatialWord = z.pick(SpatialWords)

	p.StylePattern = z.pick(StylePatterns)
	if hasStaff {
		p.StaffMentionRate = staffMentionWithStaff
	}
	p.StoreNamePosition = z.weighted(StoreNamePositions, StoreNameWeights)
	p.OpeningPattern = z.pick(OpeningPatterns)
	return p
}

// timeContext renders a day phrase. Business hours run 21:00 to 03:59; after
// midnight the label shifts back a day, outside business hours the day is random.
func (z *Randomizer) timeContext() string {
	now := z.now().In(z.loc)
	hour, day := now.Hour(), int(now.Weekday())

	switch {
	case hour >= 21:
		return dayNames[day] + "の夜に"
	case hour <= 3:
		return dayNames[(day+6)%7] + "の深夜に"
	default:
		return dayNames[z.rng.IntN(7)] + "の夜に"
	}
}

// between is an inclusive integer draw; hi below lo collapses to lo.
func (z *Randomizer) between(lo, hi int) int {
	if hi < lo {
		return lo
	}
	return lo + z.rng.IntN(hi-lo+1)
}

func (z *Randomizer) uniform(lo, hi float64) float64 {
	return lo + z.rng.Float64()*(hi-lo)
}

func (z *Randomizer) pick(items []string) string {
	return items[z.rng.IntN(len(items))]
}

func (z *Randomizer) weighted(items []string, weights []float64) string {
	var total float64
	for _, w := range weights {
		total += w
	}
	r := z.rng.Float64() * total
	for i, w := range weights {
		r -= w
		if r <= 0 {
			return items[i]
		}
	}
	return items[len(items)-1]
}
