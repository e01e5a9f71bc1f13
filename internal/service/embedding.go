package service

import (
	"strings"

	pgvector "github.com/pgvector/pgvector-go"
)

// MenuEmbedding returns a simple deterministic embedding for menu-item text.
// It counts total length, vowels and consonants, which is enough to rank
// partial-name matches without an external model.
func MenuEmbedding(text string) pgvector.Vector {
	text = strings.ToLower(text)
	var vowels, consonants float32
	for _, r := range text {
		if strings.ContainsRune("aeiou", r) {
			vowels++
		} else if r >= 'a' && r <= 'z' {
			consonants++
		}
	}
	length := float32(len(text))
	return pgvector.NewVector([]float32{length, vowels, consonants})
}
