// Package chunker splits document text into overlapping word windows
// sized for embedding.
package chunker

import (
	"errors"
	"strings"
)

// Config controls the window size and overlap, both measured in
// whitespace-delimited words.
type Config struct {
	MaxSize int
	Overlap int
}

var (
	ErrInvalidSize    = errors.New("chunker: max size must be positive")
	ErrInvalidOverlap = errors.New("chunker: overlap must be smaller than max size")
)

// Split breaks text into chunks of at most cfg.MaxSize words, with
// consecutive chunks sharing cfg.Overlap words. Words are rejoined
// with single spaces, so runs of whitespace in the input collapse.
// Empty or whitespace-only text yields no chunks.
func Split(text string, cfg Config) ([]string, error) {
	if cfg.MaxSize <= 0 {
		return nil, ErrInvalidSize
	}
	if cfg.Overlap < 0 || cfg.Overlap >= cfg.MaxSize {
		return nil, ErrInvalidOverlap
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, nil
	}

	step := cfg.MaxSize - cfg.Overlap
	chunks := make([]string, 0, (len(words)+step-1)/step)

	for start := 0; start < len(words); start += step {
		end := start + cfg.MaxSize
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}

	return chunks, nil
}
