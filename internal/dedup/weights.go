package dedup

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EngineWeights bundles every tunable table the engine uses: similarity
// weights, the completeness checklist, the source ranking and the selector
// split. They are explicit configuration rather than hard-coded constants so
// each table can be tested and overridden independently.
type EngineWeights struct {
	Score        ScoreWeights        `yaml:"score"`
	Completeness CompletenessWeights `yaml:"completeness"`
	Priorities   SourcePriorities    `yaml:"source_priorities"`
	Selector     SelectorWeights     `yaml:"selector"`
}

// DefaultEngineWeights returns the production tables
func DefaultEngineWeights() EngineWeights {
	return EngineWeights{
		Score:        DefaultScoreWeights(),
		Completeness: DefaultCompletenessWeights(),
		Priorities:   DefaultSourcePriorities(),
		Selector:     DefaultSelectorWeights(),
	}
}

// LoadEngineWeights reads a YAML override file on top of the defaults. Keys
// absent from the file keep their default values.
func LoadEngineWeights(path string) (EngineWeights, error) {
	weights := DefaultEngineWeights()
	data, err := os.ReadFile(path)
	if err != nil {
		return weights, fmt.Errorf("read weights file: %w", err)
	}
	if err := yaml.Unmarshal(data, &weights); err != nil {
		return weights, fmt.Errorf("parse weights file %s: %w", path, err)
	}
	if err := weights.Validate(); err != nil {
		return weights, fmt.Errorf("weights file %s: %w", path, err)
	}
	return weights, nil
}

// Validate rejects weight tables the scorer cannot work with
func (w EngineWeights) Validate() error {
	if w.Score.MaxHoursApart <= 0 {
		return fmt.Errorf("score.max_hours_apart must be positive")
	}
	if w.Score.MaxDistanceKm <= 0 {
		return fmt.Errorf("score.max_distance_km must be positive")
	}
	componentSum := w.Score.Time + w.Score.Spatial + w.Score.Vessel + w.Score.Type
	if componentSum < 0.999 || componentSum > 1.001 {
		return fmt.Errorf("score component weights must sum to 1, got %v", componentSum)
	}
	selectorSum := w.Selector.Completeness + w.Selector.SourcePriority
	if selectorSum < 0.999 || selectorSum > 1.001 {
		return fmt.Errorf("selector weights must sum to 1, got %v", selectorSum)
	}
	if w.Completeness.maxTotal() <= 0 {
		return fmt.Errorf("completeness weights must have a positive total")
	}
	return nil
}
