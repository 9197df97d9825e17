package engine

import (
	"strings"
	"testing"

	"Koro/backend/go/internal/intent"
	"Koro/backend/go/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestScriptPromptDefaults(t *testing.T) {
	p := ScriptPrompt("quantum computing", "", "", 0)
	assert.True(t, strings.HasPrefix(p, intent.ScriptDirective))
	assert.Contains(t, p, "TOPIC: quantum computing")
	assert.Contains(t, p, "for youtube")
	assert.Contains(t, p, "TONE: professional")
	assert.Contains(t, p, "TARGET DURATION: 5 minutes")
	assert.Equal(t, models.ModeScript, intent.Classify(p, false).Mode)
}

func TestReasoningTraceIsCopy(t *testing.T) {
	trace := ReasoningTrace(models.ModeSearch)
	trace[0] = "mutated"
	assert.NotEqual(t, "mutated", ReasoningTrace(models.ModeSearch)[0])
	assert.Equal(t, ReasoningTrace(models.ModeChat), ReasoningTrace("unknown"))
}

func TestSystemInstructionModes(t *testing.T) {
	chat := SystemInstruction(models.IntentProfile{Mode: models.ModeChat}, models.LangEnglish, "")
	assert.Contains(t, chat, "You are KORO")
	assert.NotContains(t, chat, "ACTIVE MODE")

	analysis := SystemInstruction(models.IntentProfile{Mode: models.ModeAnalysis}, models.LangFrench, "")
	assert.Contains(t, analysis, "FILE ANALYSIS")
	assert.Contains(t, analysis, "INTERFACE LANGUAGE: French")
}
