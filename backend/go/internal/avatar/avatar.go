// Package avatar 为头像工坊构造图像生成提示。
package avatar

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"Koro/backend/go/internal/llm"
	"Koro/backend/go/internal/models"
)

// Style 是头像的视觉风格。
type Style string

const (
	Cyberpunk    Style = "cyberpunk"
	Anime        Style = "anime"
	Professional Style = "professional"
	Render3D     Style = "3d-render"
	PixelArt     Style = "pixel-art"
	OilPainting  Style = "oil-painting"
)

// AspectRatio 是头像固定使用的画幅。
const AspectRatio = "1:1"

var ErrUnknownStyle = errors.New("unknown avatar style")

var stylePrompts = map[Style]string{
	Cyberpunk:    "Cyberpunk 2077 aesthetic, night city vibes, neon pink and electric blue lighting, rain-slicked surfaces, cybernetic implants, hyper-detailed chrome, volumetric fog.",
	Anime:        "High-end anime character design, ufotable or Kyoto Animation style, vibrant cel-shading, expressive eyes, dynamic lighting, clean line art, cinematic composition.",
	Professional: "Ultra-realistic 8k studio portrait, shallow depth of field, bokeh background, professional rim lighting, sharp focus on eyes, 85mm lens aesthetic, corporate clean.",
	Render3D:     "Stylized 3D character, Octane Render, Disney-Pixar movie quality, subsurface scattering, soft global illumination, toy-like texture, vibrant saturated colors.",
	PixelArt:     "Masterpiece 32-bit pixel art, high-detail sprites, vibrant retro color palette, clean anti-aliasing, modern indie game aesthetic, isometric lighting.",
	OilPainting:  "Impressionist oil painting masterpiece, thick visible impasto brushstrokes, rich canvas texture, dramatic chiaroscuro lighting, Rembrandt style, deep oil colors.",
}

// Styles 按界面展示顺序列出所有风格。
var Styles = []Style{Cyberpunk, Anime, Professional, Render3D, PixelArt, OilPainting}

// 风格关键词按顺序匹配。
var styleKeywords = []struct {
	style   Style
	pattern *regexp.Regexp
}{
	{Cyberpunk, regexp.MustCompile(`(?i)\b(?:cyberpunk|neon|cyber)\b`)},
	{Anime, regexp.MustCompile(`(?i)\b(?:anime|manga|cel[- ]shad\w*)\b`)},
	{Render3D, regexp.MustCompile(`(?i)\b(?:3d|pixar|render(?:ed)?)\b`)},
	{PixelArt, regexp.MustCompile(`(?i)\b(?:pixel(?:[- ]art)?|8[- ]bit|16[- ]bit|retro game)\b`)},
	{OilPainting, regexp.MustCompile(`(?i)\b(?:oil(?:[- ]painting)?|painted|rembrandt|impressionist)\b`)},
}

// Valid 判断风格是否受支持。
func (s Style) Valid() bool {
	_, ok := stylePrompts[s]
	return ok
}

// DetectStyle 根据提示中的关键词选择风格，默认为 professional。
func DetectStyle(prompt string) Style {
	for _, k := range styleKeywords {
		if k.pattern.MatchString(prompt) {
			return k.style
		}
	}
	return Professional
}

// BuildPrompt 把主题与风格渲染为正方形头像的生成提示。未知风格按 professional 处理。
func BuildPrompt(subject string, style Style) string {
	sp, ok := stylePrompts[style]
	if !ok {
		sp = stylePrompts[Professional]
	}
	var sb strings.Builder
	sb.WriteString("TASK: Generate a professional, high-quality square profile avatar.\n")
	fmt.Fprintf(&sb, "SUBJECT: %s.\n", strings.TrimSpace(subject))
	fmt.Fprintf(&sb, "VISUAL STYLE: %s\n", sp)
	sb.WriteString("TECHNICAL CONSTRAINTS: Centered headshot, clear facial features, 1:1 aspect ratio, no text, no logos, no watermarks, perfectly framed, clean edges.")
	return sb.String()
}

// Service 是独立的头像工坊，不经过对话流程。
type Service struct {
	gen llm.Generator
}

// NewService 创建头像服务。
func NewService(gen llm.Generator) *Service {
	return &Service{gen: gen}
}

// Generate 生成头像。style 为空时根据 subject 推断。
func (s *Service) Generate(ctx context.Context, subject string, style Style) (*models.ImageResponse, error) {
	if style == "" {
		style = DetectStyle(subject)
	}
	if !style.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStyle, style)
	}
	res, err := s.gen.GenerateImage(ctx, &models.ImageRequest{Prompt: BuildPrompt(subject, style), AspectRatio: AspectRatio})
	if err != nil {
		return nil, err
	}
	if res.Data == "" {
		return res, errors.New("avatar synthesis returned no image data")
	}
	return res, nil
}
