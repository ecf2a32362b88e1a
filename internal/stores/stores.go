// Package stores holds the per-store configuration table: theme, form features,
// keyword vocabularies and the paraphrase tables used by the prompt assembler.
//
// A Catalog is built once at startup and never mutated afterwards.
package stores

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

const (
	BarvelKoza = "barvel-koza"
	CebuOcto   = "cebuocto"
)

// Template selects the prompt template family used for a store.
type Template string

const (
	TemplateBar  Template = "bar"
	TemplateTour Template = "tour"
)

// Localized is a string with a Japanese and an English rendering.
type Localized struct {
	JA string `yaml:"ja" json:"ja"`
	EN string `yaml:"en" json:"en"`
}

// Options are index-aligned localized option lists: EN[i] is the English label of JA[i].
type Options struct {
	JA []string `yaml:"ja" json:"ja"`
	EN []string `yaml:"en" json:"en"`
}

type OptionFeature struct {
	Enabled bool    `yaml:"enabled" json:"enabled"`
	Options Options `yaml:"options" json:"options"`
}

type StaffFeature struct {
	Enabled     bool      `yaml:"enabled" json:"enabled"`
	Placeholder Localized `yaml:"placeholder" json:"placeholder"`
}

type RatingFeature struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	Default int  `yaml:"default" json:"default"`
}

type Features struct {
	Keywords  OptionFeature `yaml:"keywords" json:"keywords"`
	Companion OptionFeature `yaml:"companion" json:"companion"`
	Gender    OptionFeature `yaml:"gender" json:"gender"`
	VisitType OptionFeature `yaml:"visit_type" json:"visitType"`
	StaffName StaffFeature  `yaml:"staff_name" json:"staffName"`
	Rating    RatingFeature `yaml:"rating" json:"rating"`
}

type Theme struct {
	PrimaryColor   string `yaml:"primary_color" json:"primaryColor"`
	SecondaryColor string `yaml:"secondary_color" json:"secondaryColor"`
	LogoGlow       string `yaml:"logo_glow" json:"logoGlow"`
}

// Store is one store's configuration.
type Store struct {
	ID               string    `yaml:"id" json:"id"`
	Name             string    `yaml:"name" json:"name"`
	NameEN           string    `yaml:"name_en" json:"nameEn"`
	LogoPath         string    `yaml:"logo_path" json:"logoPath"`
	GoogleMapsURL    string    `yaml:"google_maps_url" json:"googleMapsUrl"`
	PlaceID          string    `yaml:"place_id" json:"placeId"`
	Theme            Theme     `yaml:"theme" json:"theme"`
	Features         Features  `yaml:"features" json:"features"`
	PromptContext    Localized `yaml:"prompt_context" json:"-"`
	SinglePageLayout bool      `yaml:"single_page_layout" json:"singlePageLayout"`
	Template         Template  `yaml:"template" json:"-"`

	// KeywordVariants maps a canonical keyword to its paraphrases.
	KeywordVariants map[string][]string `yaml:"keyword_variants" json:"-"`
	// KeywordContextsEN maps a canonical keyword to an English emphasis sentence.
	KeywordContextsEN map[string]string `yaml:"keyword_contexts_en" json:"-"`
}

// Canonical maps v onto the Japanese label of the feature. English labels match
// case-insensitively. ok is false when v belongs to neither list.
func (f OptionFeature) Canonical(v string) (string, bool) {
	v = strings.TrimSpace(v)
	for _, ja := range f.Options.JA {
		if ja == v {
			return ja, true
		}
	}
	for i, en := range f.Options.EN {
		if strings.EqualFold(en, v) && i < len(f.Options.JA) {
			return f.Options.JA[i], true
		}
	}
	return "", false
}

// First returns the first Japanese option, or "" when the list is empty.
func (f OptionFeature) First() string {
	if len(f.Options.JA) == 0 {
		return ""
	}
	return f.Options.JA[0]
}

// Variants returns the paraphrase list for a canonical keyword. Unknown keywords
// map to themselves.
func (s Store) Variants(keyword string) []string {
	if v := s.KeywordVariants[keyword]; len(v) > 0 {
		return v
	}
	return []string{keyword}
}

func (s Store) validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return errors.New("store id cannot be empty")
	}
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("store %s: name cannot be empty", s.ID)
	}
	switch s.Template {
	case TemplateBar, TemplateTour:
	default:
		return fmt.Errorf("store %s: unknown template %q", s.ID, s.Template)
	}
	for name, f := range map[string]OptionFeature{
		"keywords":   s.Features.Keywords,
		"companion":  s.Features.Companion,
		"gender":     s.Features.Gender,
		"visit_type": s.Features.VisitType,
	} {
		if len(f.Options.EN) != 0 && len(f.Options.EN) != len(f.Options.JA) {
			return fmt.Errorf("store %s: %s options ja/en length mismatch", s.ID, name)
		}
	}
	if r := s.Features.Rating.Default; r < 1 || r > 5 {
		return fmt.Errorf("store %s: default rating %d out of range", s.ID, r)
	}
	return nil
}

// Catalog is an immutable set of stores with a default.
type Catalog struct {
	stores    map[string]Store
	order     []string
	defaultID string
}

// NewCatalog validates the stores and returns a catalog. defaultID must name one of them.
func NewCatalog(defaultID string, list ...Store) (*Catalog, error) {
	c := &Catalog{stores: make(map[string]Store, len(list)), defaultID: defaultID}
	for _, s := range list {
		if s.Template == "" {
			s.Template = TemplateBar
		}
		if s.Features.Rating.Default == 0 {
			s.Features.Rating.Default = 5
		}
		if err := s.validate(); err != nil {
			return nil, err
		}
		if _, dup := c.stores[s.ID]; dup {
			return nil, fmt.Errorf("duplicate store id %q", s.ID)
		}
		c.stores[s.ID] = s
		c.order = append(c.order, s.ID)
	}
	if _, ok := c.stores[defaultID]; !ok {
		return nil, fmt.Errorf("default store %q not in catalog", defaultID)
	}
	return c, nil
}

// Get looks a store up by id.
func (c *Catalog) Get(id string) (Store, bool) {
	s, ok := c.stores[id]
	return s, ok
}

// Resolve is Get with the empty id meaning the default store.
func (c *Catalog) Resolve(id string) (Store, bool) {
	if strings.TrimSpace(id) == "" {
		id = c.defaultID
	}
	return c.Get(id)
}

func (c *Catalog) DefaultID() string { return c.defaultID }

// IDs returns store ids in catalog order.
func (c *Catalog) IDs() []string {
	return append([]string(nil), c.order...)
}

// Valid reports whether id names a store.
func (c *Catalog) Valid(id string) bool {
	_, ok := c.stores[id]
	return ok
}

// All returns the stores in catalog order.
func (c *Catalog) All() []Store {
	out := make([]Store, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.stores[id])
	}
	return out
}

// SortedIDs returns ids alphabetically, for stable CLI output.
func (c *Catalog) SortedIDs() []string {
	ids := c.IDs()
	sort.Strings(ids)
	return ids
}
