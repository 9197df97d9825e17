// Package intent 根据提示文本和附件判断本轮对话走哪条生成路径。
package intent

import (
	"regexp"
	"strings"

	"Koro/backend/go/internal/models"
)

// 界面在提示前插入的显式指令标记。
const (
	SearchDirective = "[NEURAL_SEARCH_DIRECTIVE]"
	ScriptDirective = "[NEURAL_SCRIPT_DIRECTIVE]"
)

var (
	avatarPattern     = regexp.MustCompile(`(?i)\b(?:avatar|portrait|headshot|pfp|profile (?:picture|pic|photo))`)
	generationPattern = regexp.MustCompile(`(?i)\b(?:generate|create|logo|image|picture|drawing|sketch|avatar)s?\b`)
	analysisPattern   = regexp.MustCompile(`(?i)\b(?:analy[sz]|summar|explain|describ|read\b|scan|pars(?:e|ing))`)
)

// Rule 是分类表中的一行：匹配成功即返回 Profile。
type Rule struct {
	Match   func(prompt string, hasAttachments bool) bool
	Profile models.IntentProfile
}

// Rules 按顺序求值，第一条命中的规则决定结果。
var Rules = []Rule{
	{
		Match:   func(p string, _ bool) bool { return strings.Contains(p, SearchDirective) },
		Profile: models.IntentProfile{Mode: models.ModeSearch, Confidence: models.ConfidenceHigh, Reason: "search_directive"},
	},
	{
		Match:   func(p string, _ bool) bool { return strings.Contains(p, ScriptDirective) },
		Profile: models.IntentProfile{Mode: models.ModeScript, Confidence: models.ConfidenceHigh, Reason: "script_directive"},
	},
	{
		Match:   func(p string, _ bool) bool { return avatarPattern.MatchString(p) },
		Profile: models.IntentProfile{Mode: models.ModeAvatar, Confidence: models.ConfidenceHigh, Reason: "avatar_keywords"},
	},
	{
		Match:   func(p string, _ bool) bool { return generationPattern.MatchString(p) },
		Profile: models.IntentProfile{Mode: models.ModeImage, Confidence: models.ConfidenceHigh, Reason: "generation_keywords"},
	},
	{
		Match:   func(p string, has bool) bool { return has && analysisPattern.MatchString(p) },
		Profile: models.IntentProfile{Mode: models.ModeAnalysis, Confidence: models.ConfidenceHigh, Reason: "analysis_keywords"},
	},
	{
		Match:   func(_ string, has bool) bool { return has },
		Profile: models.IntentProfile{Mode: models.ModeAnalysis, Confidence: models.ConfidenceMedium, Reason: "attachments_present"},
	},
}

var fallback = models.IntentProfile{Mode: models.ModeChat, Confidence: models.ConfidenceMedium, Reason: "default"}

// Classify 是纯函数：相同输入总是得到相同的结果。
func Classify(prompt string, hasAttachments bool) models.IntentProfile {
	for _, r := range Rules {
		if r.Match(prompt, hasAttachments) {
			return r.Profile
		}
	}
	return fallback
}
