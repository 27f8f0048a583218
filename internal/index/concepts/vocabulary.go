package concepts

import (
	"fmt"
	"os"
	"sort"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/logos-rag/backend/pkg/logger"
)

// Vocabulary is the set of terms the indexer looks for. Terms are held
// sorted so extraction and indexing iterate deterministically.
type Vocabulary struct {
	Terms         []string
	CaseSensitive bool
}

type vocabularyFile struct {
	TheologicalConcepts map[string][]string `yaml:"theological_concepts"`
	Config              struct {
		CaseSensitive bool `yaml:"case_sensitive"`
	} `yaml:"config"`
}

// fallbackTerms keeps the indexer functional when no vocabulary file
// is available.
var fallbackTerms = []string{"bible", "christ", "god", "jesus", "lord", "scripture", "word"}

// LoadVocabulary reads the YAML vocabulary at path. A missing or
// malformed file falls back to the built-in minimal term set rather
// than failing startup.
func LoadVocabulary(path string) *Vocabulary {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("Concept vocabulary not found, using minimal defaults",
			zap.String("path", path),
			zap.Error(err),
		)
		return &Vocabulary{Terms: append([]string(nil), fallbackTerms...)}
	}

	vocab, err := parseVocabulary(data)
	if err != nil {
		logger.Error("Failed to parse concept vocabulary, using minimal defaults",
			zap.String("path", path),
			zap.Error(err),
		)
		return &Vocabulary{Terms: append([]string(nil), fallbackTerms...)}
	}

	logger.Info("Loaded concept vocabulary",
		zap.String("path", path),
		zap.Int("terms", len(vocab.Terms)),
	)

	return vocab
}

func parseVocabulary(data []byte) (*Vocabulary, error) {
	var file vocabularyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal vocabulary: %w", err)
	}

	unique := make(map[string]bool)
	for _, terms := range file.TheologicalConcepts {
		for _, term := range terms {
			if term != "" {
				unique[term] = true
			}
		}
	}

	if len(unique) == 0 {
		return nil, fmt.Errorf("vocabulary contains no terms")
	}

	terms := make([]string, 0, len(unique))
	for term := range unique {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	return &Vocabulary{Terms: terms, CaseSensitive: file.Config.CaseSensitive}, nil
}
