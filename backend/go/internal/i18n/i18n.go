// Package i18n 提供会话种子消息、默认标题与回退文本的本地化。
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"

	"Koro/backend/go/internal/models"

	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

// 消息 ID。
const (
	InitialMessage          = "initial_message"
	NewSessionTitle         = "new_session_title"
	InitialSessionTitle     = "initial_session_title"
	RecoveredSessionTitle   = "recovered_session_title"
	UntitledSession         = "untitled_session"
	AttachmentAnalysisTitle = "attachment_analysis_title"
	AttachmentsPrompt       = "attachments_prompt"
	Thinking                = "thinking"
	SyncFailed              = "sync_failed"
	EmptyResponse           = "empty_response"
)

//go:embed locales/*.json
var localeFS embed.FS

// Translator 持有加载好的消息包，可并发使用。
type Translator struct {
	bundle     *goi18n.Bundle
	localizers map[models.Language]*goi18n.Localizer
}

// New 从内嵌的语言文件构建 Translator。
func New() (*Translator, error) {
	bundle := goi18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	t := &Translator{bundle: bundle, localizers: make(map[models.Language]*goi18n.Localizer)}
	for _, lang := range models.Languages {
		path := fmt.Sprintf("locales/%s.json", lang)
		if _, err := bundle.LoadMessageFileFS(localeFS, path); err != nil {
			return nil, fmt.Errorf("加载语言文件 %s 失败: %w", path, err)
		}
		t.localizers[lang] = goi18n.NewLocalizer(bundle, string(lang))
	}
	return t, nil
}

var defaultTranslator *Translator

func init() {
	t, err := New()
	if err != nil {
		panic(err)
	}
	defaultTranslator = t
}

// Default 返回包级共享的 Translator。
func Default() *Translator {
	return defaultTranslator
}

// Localize 返回消息的本地化文本，找不到时依次回退到英语和消息 ID 本身。
func (t *Translator) Localize(lang models.Language, id string) string {
	return t.LocalizeWith(lang, id, nil)
}

// LocalizeWith 与 Localize 相同，但可以填充模板变量。
func (t *Translator) LocalizeWith(lang models.Language, id string, data map[string]interface{}) string {
	if loc, ok := t.localizers[lang]; ok {
		if msg, err := loc.Localize(&goi18n.LocalizeConfig{MessageID: id, TemplateData: data}); err == nil && msg != "" {
			return msg
		}
	}
	// 缺失的翻译回退到英语
	msg, err := t.localizers[models.LangEnglish].Localize(&goi18n.LocalizeConfig{MessageID: id, TemplateData: data})
	if err != nil || msg == "" {
		return id
	}
	return msg
}

// Localize 使用默认 Translator。
func Localize(lang models.Language, id string) string {
	return defaultTranslator.Localize(lang, id)
}

// LocalizeWith 使用默认 Translator。
func LocalizeWith(lang models.Language, id string, data map[string]interface{}) string {
	return defaultTranslator.LocalizeWith(lang, id, data)
}
