package dedup

import (
	"github.com/seawatch/seawatch/internal/database"
)

// CompletenessWeights scores how much usable information a record carries.
// Long free text and an IMO number are worth more than single-word fields.
type CompletenessWeights struct {
	Description     float64 `yaml:"description"`
	LongDescription float64 `yaml:"long_description"` // extra credit past LongDescriptionChars
	VesselIMO       float64 `yaml:"vessel_imo"`
	Title           float64 `yaml:"title"`
	Reference       float64 `yaml:"reference"`
	Region          float64 `yaml:"region"`
	VesselName      float64 `yaml:"vessel_name"`
	VesselType      float64 `yaml:"vessel_type"`
	VesselFlag      float64 `yaml:"vessel_flag"`
	VesselStatus    float64 `yaml:"vessel_status"`
	UpdateText      float64 `yaml:"update_text"`

	LongDescriptionChars int `yaml:"long_description_chars"`
}

// DefaultCompletenessWeights returns the production field checklist.
// Ordering matters: long description > IMO > unit fields > status/update.
func DefaultCompletenessWeights() CompletenessWeights {
	return CompletenessWeights{
		Description:          1.0,
		LongDescription:      2.0,
		VesselIMO:            2.5,
		Title:                1.0,
		Reference:            1.0,
		Region:               1.0,
		VesselName:           1.0,
		VesselType:           1.0,
		VesselFlag:           1.0,
		VesselStatus:         0.5,
		UpdateText:           0.5,
		LongDescriptionChars: 200,
	}
}

// maxTotal is the highest completeness sum a record can reach
func (w CompletenessWeights) maxTotal() float64 {
	return w.Description + w.LongDescription + w.VesselIMO + w.Title +
		w.Reference + w.Region + w.VesselName + w.VesselType +
		w.VesselFlag + w.VesselStatus + w.UpdateText
}

// SourcePriorities ranks known reporting sources. Wire services with
// dedicated watch desks outrank regional aggregators; unknown sources get
// the floor value.
type SourcePriorities struct {
	Ranks   map[string]float64 `yaml:"ranks"`
	Unknown float64            `yaml:"unknown"`
}

// DefaultSourcePriorities returns the production source ranking
func DefaultSourcePriorities() SourcePriorities {
	return SourcePriorities{
		Ranks: map[string]float64{
			"RECAAP":   1.0,
			"UKMTO":    0.9,
			"MDAT-GoG": 0.8,
			"ICC-IMB":  0.7,
			"NAVAREA":  0.5,
		},
		Unknown: 0.1,
	}
}

func (p SourcePriorities) rank(source string) float64 {
	if rank, ok := p.Ranks[source]; ok {
		return rank
	}
	return p.Unknown
}

// SelectorWeights combines completeness and source priority into the final
// primary-selection score.
type SelectorWeights struct {
	Completeness   float64 `yaml:"completeness"`
	SourcePriority float64 `yaml:"source_priority"`
}

// DefaultSelectorWeights returns the production 0.7/0.3 split
func DefaultSelectorWeights() SelectorWeights {
	return SelectorWeights{Completeness: 0.7, SourcePriority: 0.3}
}

// Selection is the outcome of choosing the authoritative record of a pair
type Selection struct {
	Primary        *database.RawRecord
	Secondary      *database.RawRecord
	PrimaryScore   float64
	SecondaryScore float64
}

// Selector decides which record of a candidate pair becomes authoritative
type Selector struct {
	completeness CompletenessWeights
	priorities   SourcePriorities
	weights      SelectorWeights
}

// NewSelector creates a selector from explicit weight tables
func NewSelector(completeness CompletenessWeights, priorities SourcePriorities, weights SelectorWeights) *Selector {
	return &Selector{completeness: completeness, priorities: priorities, weights: weights}
}

// NewDefaultSelector creates a selector with the production tables
func NewDefaultSelector() *Selector {
	return NewSelector(DefaultCompletenessWeights(), DefaultSourcePriorities(), DefaultSelectorWeights())
}

// Select picks the primary of a pair. Ties go to the first record.
func (s *Selector) Select(a, b *database.RawRecord) Selection {
	scoreA := s.combinedScore(a)
	scoreB := s.combinedScore(b)
	if scoreA >= scoreB {
		return Selection{Primary: a, Secondary: b, PrimaryScore: scoreA, SecondaryScore: scoreB}
	}
	return Selection{Primary: b, Secondary: a, PrimaryScore: scoreB, SecondaryScore: scoreA}
}

func (s *Selector) combinedScore(r *database.RawRecord) float64 {
	return s.weights.Completeness*s.completenessScore(r) +
		s.weights.SourcePriority*s.priorities.rank(r.Source)
}

// completenessScore sums the field-presence checklist and normalizes it to
// [0,1] against the maximum reachable sum.
func (s *Selector) completenessScore(r *database.RawRecord) float64 {
	w := s.completeness
	var sum float64
	if r.Description != "" {
		sum += w.Description
		if len(r.Description) > w.LongDescriptionChars {
			sum += w.LongDescription
		}
	}
	if r.VesselIMO != "" {
		sum += w.VesselIMO
	}
	if r.Title != "" {
		sum += w.Title
	}
	if r.Reference != "" {
		sum += w.Reference
	}
	if r.Region != "" {
		sum += w.Region
	}
	if r.VesselName != "" {
		sum += w.VesselName
	}
	if r.VesselType != "" {
		sum += w.VesselType
	}
	if r.VesselFlag != "" {
		sum += w.VesselFlag
	}
	if r.VesselStatus != "" {
		sum += w.VesselStatus
	}
	if r.UpdateText != "" {
		sum += w.UpdateText
	}

	max := w.maxTotal()
	if max == 0 {
		return 0
	}
	return sum / max
}
