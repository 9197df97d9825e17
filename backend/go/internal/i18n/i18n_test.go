package i18n

import (
	"testing"

	"Koro/backend/go/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestLocalize(t *testing.T) {
	assert.Equal(t, "New Synchronization", Localize(models.LangEnglish, NewSessionTitle))
	assert.Equal(t, "Nueva sincronización", Localize(models.LangSpanish, NewSessionTitle))
	assert.Equal(t, "Koro synthétise...", Localize(models.LangFrench, Thinking))
	assert.Equal(t, "مزامنة جديدة", Localize(models.LangArabic, NewSessionTitle))
}

func TestLocalizeFallsBackToEnglish(t *testing.T) {
	// 乌尔都语文件没有 sync_failed
	assert.Equal(t, "Neural Pathway Obstruction. Synchronization failed.", Localize(models.LangUrdu, SyncFailed))
	assert.Equal(t, "New Objective", Localize(models.Language("de"), InitialSessionTitle))
}

func TestLocalizeUnknownID(t *testing.T) {
	assert.Equal(t, "no_such_message", Localize(models.LangEnglish, "no_such_message"))
}

func TestLocalizeWithTemplate(t *testing.T) {
	got := LocalizeWith(models.LangEnglish, AttachmentAnalysisTitle, map[string]interface{}{"Count": 3})
	assert.Equal(t, "Analysis of 3 items", got)
}

func TestEveryLanguageHasInitialMessage(t *testing.T) {
	for _, lang := range models.Languages {
		msg := Localize(lang, InitialMessage)
		assert.NotEqual(t, InitialMessage, msg, string(lang))
	}
}
