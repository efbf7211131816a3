// Package vocab provides the reference vocabulary used to compare free-text
// incident-type labels across reporting sources.
package vocab

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Vocabulary resolves two incident-type labels to a similarity in [0,1].
// The second return value is false when neither label is known to the
// vocabulary, in which case the caller falls back to lexical comparison.
// Implementations may be remote; lookups take a context.
type Vocabulary interface {
	Similarity(ctx context.Context, a, b string) (float64, bool, error)
}

// StaticVocabulary maps incident-type labels to canonical types via alias
// lists. Two labels with the same canonical type score 1.0; two labels with
// different canonical types score 0.
type StaticVocabulary struct {
	// alias (normalized) -> canonical type name
	aliases map[string]string
}

// vocabFile is the YAML shape: canonical type -> alias list
type vocabFile struct {
	Types map[string][]string `yaml:"incident_types"`
}

// NewStaticVocabulary builds a vocabulary from canonical-type alias lists.
// The canonical name itself is always an alias of its own type.
func NewStaticVocabulary(types map[string][]string) *StaticVocabulary {
	v := &StaticVocabulary{aliases: make(map[string]string)}
	for canonical, aliases := range types {
		v.aliases[normalize(canonical)] = canonical
		for _, alias := range aliases {
			v.aliases[normalize(alias)] = canonical
		}
	}
	return v
}

// LoadStaticVocabulary reads a vocabulary from a YAML file
func LoadStaticVocabulary(path string) (*StaticVocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary file: %w", err)
	}
	var file vocabFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse vocabulary file %s: %w", path, err)
	}
	if len(file.Types) == 0 {
		return nil, fmt.Errorf("vocabulary file %s defines no incident_types", path)
	}
	return NewStaticVocabulary(file.Types), nil
}

// Default returns the built-in maritime incident-type vocabulary
func Default() *StaticVocabulary {
	return NewStaticVocabulary(map[string][]string{
		"robbery": {
			"armed robbery", "robbery at anchor", "theft", "petty theft", "armed theft",
		},
		"piracy": {
			"piracy attack", "pirate attack", "act of piracy",
		},
		"hijack": {
			"hijacking", "vessel hijacked", "seizure", "vessel seized",
		},
		"boarding": {
			"boarded", "unauthorised boarding", "unauthorized boarding", "illegal boarding",
		},
		"attempted boarding": {
			"attempted attack", "approach and attempted boarding",
		},
		"suspicious approach": {
			"suspicious activity", "suspicious vessel", "approach", "close approach",
		},
		"attack": {
			"vessel attacked", "fired upon", "weapons fired", "missile attack", "drone attack",
		},
		"kidnapping": {
			"kidnap", "crew kidnapped", "abduction",
		},
		"irregular activity": {
			"irregular incident", "other", "unspecified incident",
		},
	})
}

func (v *StaticVocabulary) Similarity(ctx context.Context, a, b string) (float64, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	canonicalA, okA := v.aliases[normalize(a)]
	canonicalB, okB := v.aliases[normalize(b)]
	if !okA || !okB {
		return 0, false, nil
	}
	if canonicalA == canonicalB {
		return 1, true, nil
	}
	return 0, true, nil
}

func normalize(label string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(label))), " ")
}
