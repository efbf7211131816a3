package dedup

import (
	"context"
	"math"

	"github.com/seawatch/seawatch/internal/database"
	"github.com/seawatch/seawatch/internal/vocab"
)

// Reject reasons recorded on hard-rejected pairs. A hard reject is not an
// error: the pair simply cannot refer to the same event.
const (
	RejectMissingDate        = "missing date"
	RejectMissingCoordinates = "missing coordinates"
	RejectTimeGap            = "time gap exceeds window"
	RejectDistance           = "distance exceeds radius"
)

// ScoreWeights configures the composite similarity score. Component weights
// must sum to 1 for the total to stay in [0,1].
type ScoreWeights struct {
	Time    float64 `yaml:"time"`
	Spatial float64 `yaml:"spatial"`
	Vessel  float64 `yaml:"vessel"`
	Type    float64 `yaml:"type"`

	// Hard-reject windows. Pairs further apart than either bound score 0
	// outright, they are not merely down-weighted.
	MaxHoursApart float64 `yaml:"max_hours_apart"`
	MaxDistanceKm float64 `yaml:"max_distance_km"`
}

// DefaultScoreWeights returns the production scoring weights
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{
		Time:          0.3,
		Spatial:       0.3,
		Vessel:        0.3,
		Type:          0.1,
		MaxHoursApart: 48,
		MaxDistanceKm: 50,
	}
}

// PairScore is the result of scoring one candidate pair
type PairScore struct {
	Total   float64 `json:"total"`
	Time    float64 `json:"time"`
	Spatial float64 `json:"spatial"`
	Vessel  float64 `json:"vessel"`
	Type    float64 `json:"type"`

	// Reject is the short-circuit reason when Total is forced to 0
	Reject string `json:"reject,omitempty"`
}

// Scorer computes a composite 0-1 similarity between two raw records
type Scorer struct {
	weights    ScoreWeights
	vocabulary vocab.Vocabulary
}

// NewScorer creates a scorer. vocabulary may be nil, in which case
// incident-type comparison is purely lexical.
func NewScorer(weights ScoreWeights, vocabulary vocab.Vocabulary) *Scorer {
	return &Scorer{weights: weights, vocabulary: vocabulary}
}

// Score compares two records. The incident-type lookup may be remote, so
// scoring takes a context. The score is symmetric in its arguments.
func (s *Scorer) Score(ctx context.Context, a, b *database.RawRecord) (PairScore, error) {
	if a.Date == nil || b.Date == nil {
		return PairScore{Reject: RejectMissingDate}, nil
	}
	if a.Latitude == nil || a.Longitude == nil || b.Latitude == nil || b.Longitude == nil {
		return PairScore{Reject: RejectMissingCoordinates}, nil
	}

	hoursApart := math.Abs(a.Date.Sub(*b.Date).Hours())
	if hoursApart > s.weights.MaxHoursApart {
		return PairScore{Reject: RejectTimeGap}, nil
	}
	timeScore := 1 - hoursApart/s.weights.MaxHoursApart

	distanceKm := haversineKm(*a.Latitude, *a.Longitude, *b.Latitude, *b.Longitude)
	if distanceKm >= s.weights.MaxDistanceKm {
		return PairScore{Reject: RejectDistance}, nil
	}
	spatialScore := 1 - distanceKm/s.weights.MaxDistanceKm

	vesselScore := s.vesselSimilarity(a, b)

	typeScore, err := s.typeSimilarity(ctx, a.IncidentType, b.IncidentType)
	if err != nil {
		return PairScore{}, err
	}

	score := PairScore{
		Time:    timeScore,
		Spatial: spatialScore,
		Vessel:  vesselScore,
		Type:    typeScore,
	}
	score.Total = s.weights.Time*timeScore +
		s.weights.Spatial*spatialScore +
		s.weights.Vessel*vesselScore +
		s.weights.Type*typeScore
	return score, nil
}

// vesselSimilarity returns 1 on an exact IMO match regardless of how the
// names are spelled; otherwise it falls back to fuzzy name comparison.
func (s *Scorer) vesselSimilarity(a, b *database.RawRecord) float64 {
	if a.VesselIMO != "" && a.VesselIMO == b.VesselIMO {
		return 1
	}
	return textSimilarity(a.VesselName, b.VesselName)
}

// typeSimilarity consults the reference vocabulary first and keeps the better
// of the vocabulary and lexical scores. Labels unknown to the vocabulary are
// compared lexically only.
func (s *Scorer) typeSimilarity(ctx context.Context, a, b string) (float64, error) {
	lexical := textSimilarity(a, b)
	if s.vocabulary == nil {
		return lexical, nil
	}
	sim, ok, err := s.vocabulary.Similarity(ctx, a, b)
	if err != nil {
		return 0, err
	}
	if ok && sim > lexical {
		return sim, nil
	}
	return lexical, nil
}

const earthRadiusKm = 6371.0

// haversineKm is the great-circle distance between two points in kilometers
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
