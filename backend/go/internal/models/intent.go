package models

// IntentMode 是意图分类的封闭枚举。
type IntentMode string

const (
	ModeChat     IntentMode = "chat"
	ModeSearch   IntentMode = "search"
	ModeScript   IntentMode = "script"
	ModeAnalysis IntentMode = "analysis"
	ModeImage    IntentMode = "image"
	ModeAvatar   IntentMode = "avatar"
)

// Confidence 是分类结果的置信度。
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
)

// IntentProfile 是单次分类的结果，每轮重新计算，从不持久化。
type IntentProfile struct {
	Mode       IntentMode `json:"mode"`
	Confidence Confidence `json:"confidence"`
	Reason     string     `json:"reason"`
}

// WantsImage 表示该意图走单次图像生成路径。
func (p IntentProfile) WantsImage() bool {
	return p.Mode == ModeImage || p.Mode == ModeAvatar
}

// WantsSearch 表示该意图需要联网搜索增强。
func (p IntentProfile) WantsSearch() bool {
	switch p.Mode {
	case ModeChat, ModeSearch, ModeAnalysis:
		return true
	default:
		return false
	}
}
