package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTextSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, textSimilarity("Acme Widget", "acme widget"))
	assert.Equal(t, 1.0, textSimilarity("  Acme  ", "acme"))
	assert.Equal(t, 0.0, textSimilarity("", "acme"))
	assert.Equal(t, 0.0, textSimilarity("acme", ""))

	// Sharing most characters and half the tokens lands in between.
	sim := textSimilarity("gamma 27 monitor", "gamma 24 monitor")
	assert.Greater(t, sim, 0.5)
	assert.Less(t, sim, 1.0)
}

func TestSequenceRatio(t *testing.T) {
	assert.Equal(t, 1.0, sequenceRatio("abc", "abc"))
	assert.Equal(t, 1.0, sequenceRatio("", ""))
	assert.Equal(t, 0.0, sequenceRatio("abc", "xyz"))

	// Classic difflib example: "bcd" matches out of 8 total runes.
	assert.InDelta(t, 0.75, sequenceRatio("abcd", "bcde"), 0.0001)
}

func TestTokenJaccard(t *testing.T) {
	assert.Equal(t, 1.0, tokenJaccard("acme widget", "widget acme"))
	assert.Equal(t, 0.0, tokenJaccard("acme", "widget"))
	assert.Equal(t, 0.0, tokenJaccard("---", "acme"))

	// {gamma, 27, monitor} vs {gamma, 24, monitor}: 2 shared of 4 distinct.
	assert.InDelta(t, 0.5, tokenJaccard("gamma 27 monitor", "gamma 24 monitor"), 0.0001)
}

func TestNormalizeSKU(t *testing.T) {
	assert.Equal(t, "abc123", normalizeSKU("ABC-123"))
	assert.Equal(t, "abc123", normalizeSKU("abc 123"))
	assert.Equal(t, "b0gamma27", normalizeSKU("B0GAMMA27"))
	assert.Equal(t, "", normalizeSKU("--- "))
}
