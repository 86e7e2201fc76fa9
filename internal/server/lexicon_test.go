package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Aspirin", "aspirin"},
		{"  Paracétamol   500 ", "paracetamol 500"},
		{"IBUPROFÈNE", "ibuprofene"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalize(tt.in), tt.in)
	}
}

func TestLexicon_Rank(t *testing.T) {
	lex, err := LoadLexicon()
	require.NoError(t, err)

	ranked := lex.Rank("Aspirin", 4)
	require.Len(t, ranked, 4)
	assert.Equal(t, "N02BA01", ranked[0].Entry.Code)
	assert.Equal(t, "B01AC06", ranked[1].Entry.Code)
	assert.Greater(t, ranked[0].P, confidentP)

	var total float64
	for _, r := range lex.Rank("aspirin", lex.Len()) {
		total += r.P
	}
	assert.Less(t, total, 1.0)
}

func TestLexicon_BrandNames(t *testing.T) {
	lex, err := LoadLexicon()
	require.NoError(t, err)

	assert.Equal(t, "N02BE01", lex.Rank("tylenol", 1)[0].Entry.Code)
	assert.Equal(t, "C10AA05", lex.Rank("lipi", 1)[0].Entry.Code)
}

func TestLexicon_NoMatchIsUncertain(t *testing.T) {
	lex, err := LoadLexicon()
	require.NoError(t, err)

	ranked := lex.Rank("zzzz", 3)
	require.Len(t, ranked, 3)
	assert.LessOrEqual(t, ranked[0].P, confidentP)
	// Ties break by code.
	assert.Less(t, ranked[0].Entry.Code, ranked[1].Entry.Code)
}

func TestParseLexicon_Errors(t *testing.T) {
	_, err := ParseLexicon([]byte(`[]`))
	assert.Error(t, err)
	_, err = ParseLexicon([]byte(`{`))
	assert.Error(t, err)
}
