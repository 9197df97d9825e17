package extractor

import (
	"regexp"
	"strings"
)

// Extractor 从一段用户输入中提取事实句。
type Extractor interface {
	Extract(text string) []Match
}

// Match 是一次命中：原文中的片段及其权重。
type Match struct {
	Fact       string
	Importance int
}

// Rule 是一条事实识别规则。
type Rule struct {
	Name       string
	Pattern    *regexp.Regexp
	Importance int
}

// 句中事实片段的最大长度（字符数），超过部分被截断。
const maxFactTail = 60

func rule(name, lead string, importance int) Rule {
	return Rule{
		Name:       name,
		Pattern:    regexp.MustCompile(`(?i)\b` + lead + `\s+[^.,!?;:\n]+`),
		Importance: importance,
	}
}

// DefaultRules 是默认的规则表，按顺序独立求值。
var DefaultRules = []Rule{
	rule("name", `my name is`, 3),
	rule("identity", `i am`, 1),
	rule("identity_short", `i'm`, 1),
	rule("preference", `i like`, 1),
	rule("preference_strong", `i love`, 1),
	rule("occupation", `i work (?:as|at)`, 2),
	rule("location", `i live in`, 2),
}

// 在并列从句处截断，"I like tea and I live in Oslo" 只保留前半句。
var clauseBreak = regexp.MustCompile(`(?i)\s+(?:and|but|so)\s+(?:i|my)\b`)

// PatternExtractor 是基于正则规则表的提取器。
type PatternExtractor struct {
	rules []Rule
}

// NewPatternExtractor 创建提取器，rules 为空时使用 DefaultRules。
func NewPatternExtractor(rules ...Rule) *PatternExtractor {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	return &PatternExtractor{rules: rules}
}

// Extract 对每条规则分别匹配，同一句话可以命中多条规则。
// 返回的片段保留原文大小写。
func (p *PatternExtractor) Extract(text string) []Match {
	var out []Match
	for _, r := range p.rules {
		for _, m := range r.Pattern.FindAllString(text, -1) {
			fact := trimFact(m)
			if fact == "" {
				continue
			}
			out = append(out, Match{Fact: fact, Importance: r.Importance})
		}
	}
	return out
}

func trimFact(m string) string {
	if loc := clauseBreak.FindStringIndex(m); loc != nil {
		m = m[:loc[0]]
	}
	m = strings.TrimSpace(m)
	if runes := []rune(m); len(runes) > maxFactTail+12 {
		m = strings.TrimSpace(string(runes[:maxFactTail+12]))
	}
	return m
}
