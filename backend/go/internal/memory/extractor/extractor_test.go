package extractor

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

func facts(ms []Match) []string {
	return lo.Map(ms, func(m Match, _ int) string { return m.Fact })
}

func TestExtractSinglePattern(t *testing.T) {
	got := facts(NewPatternExtractor().Extract("Hello there. My name is Ayesha Khan."))
	assert.Equal(t, []string{"My name is Ayesha Khan"}, got)
}

func TestExtractCaseInsensitivePreservesCasing(t *testing.T) {
	got := facts(NewPatternExtractor().Extract("i LIVE IN Lahore"))
	assert.Equal(t, []string{"i LIVE IN Lahore"}, got)
}

func TestExtractMultiplePatternsOneSentence(t *testing.T) {
	got := facts(NewPatternExtractor().Extract("I work as a nurse and I live in Oslo"))
	assert.ElementsMatch(t, []string{"I work as a nurse", "I live in Oslo"}, got)
}

func TestExtractNoMatch(t *testing.T) {
	assert.Empty(t, NewPatternExtractor().Extract("what is the weather like today?"))
}

func TestExtractWordBoundary(t *testing.T) {
	// "I liked" 不应命中 "I like"
	assert.Empty(t, NewPatternExtractor().Extract("I liked it"))
}

func TestImportanceFollowsRule(t *testing.T) {
	ms := NewPatternExtractor().Extract("my name is Sam")
	if assert.Len(t, ms, 1) {
		assert.Equal(t, 3, ms[0].Importance)
	}
}
