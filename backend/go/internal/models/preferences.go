package models

// Theme 是界面主题。
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Language 是对话语言，用于引导回复语言并选择语音区域。
type Language string

const (
	LangEnglish Language = "en"
	LangSpanish Language = "es"
	LangFrench  Language = "fr"
	LangUrdu    Language = "ur"
	LangArabic  Language = "ar"
)

// Languages 列出所有支持的语言。
var Languages = []Language{LangEnglish, LangSpanish, LangFrench, LangUrdu, LangArabic}

// Valid 判断语言是否受支持。
func (l Language) Valid() bool {
	switch l {
	case LangEnglish, LangSpanish, LangFrench, LangUrdu, LangArabic:
		return true
	}
	return false
}

// Locale 返回语音识别与合成使用的区域标签。
func (l Language) Locale() string {
	switch l {
	case LangSpanish:
		return "es-ES"
	case LangFrench:
		return "fr-FR"
	case LangUrdu:
		return "ur-PK"
	case LangArabic:
		return "ar-SA"
	default:
		return "en-US"
	}
}

// DisplayName 返回语言的英文名称，用于系统指令。
func (l Language) DisplayName() string {
	switch l {
	case LangSpanish:
		return "Spanish"
	case LangFrench:
		return "French"
	case LangUrdu:
		return "Urdu"
	case LangArabic:
		return "Arabic"
	default:
		return "English"
	}
}

// Preferences 是单个用户的界面偏好。
type Preferences struct {
	Theme      Theme    `json:"theme"`
	Language   Language `json:"language"`
	ForceLocal bool     `json:"forceLocal"`
}

// DefaultPreferences 返回首次加载时的默认偏好。
func DefaultPreferences() Preferences {
	return Preferences{Theme: ThemeDark, Language: LangEnglish}
}
