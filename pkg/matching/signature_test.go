package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignature(t *testing.T) {
	tests := []struct {
		name     string
		fullName string
		expected string
	}{
		{"simple two part name", "Jon Jones", "jones"},
		{"three part name uses last token", "Jose Maria Tome", "tome"},
		{"single ring name", "Shogun", "shogun"},
		{"diacritics stripped", "José Aldo", "aldo"},
		{"diacritics in last token", "Gegard Mousasí", "mousasi"},
		{"uppercase lowered", "CIRYL GANE", "gane"},
		{"surrounding whitespace", "  Max Holloway  ", "holloway"},
		{"empty name", "", ""},
		{"whitespace only", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Signature(tt.fullName))
		})
	}
}

func TestPairKey_OrderIndependent(t *testing.T) {
	assert.Equal(t, PairKey("Jon Jones", "Stipe Miocic"), PairKey("Stipe Miocic", "Jon Jones"))
	assert.Equal(t, "jones|miocic", PairKey("Stipe Miocic", "Jon Jones"))
}

func TestPairKey_DiacriticsDoNotSplitPairs(t *testing.T) {
	assert.Equal(t, PairKey("Jose Aldo", "Max Holloway"), PairKey("José Aldo", "Max Holloway"))
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		name          string
		fullName      string
		expectedFirst string
		expectedLast  string
	}{
		{"two parts", "Jon Jones", "Jon", "Jones"},
		{"three parts keep compound first", "Jose Maria Tome", "Jose Maria", "Tome"},
		{"single token goes to last", "Shogun", "", "Shogun"},
		{"empty", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, last := SplitName(tt.fullName)
			assert.Equal(t, tt.expectedFirst, first)
			assert.Equal(t, tt.expectedLast, last)
		})
	}
}
