package models

import (
	"strings"
	"time"
)

// SpeakerRole 定义了消息发送者在模型请求中的角色。
type SpeakerRole string

const (
	SpeakerUser  SpeakerRole = "user"  // 用户角色。
	SpeakerModel SpeakerRole = "model" // 模型角色。
)

// Content 包含了构成单个请求单元的多个部分。
type Content struct {
	// 可选。构成单个消息的部分列表。每个部分可能具有不同的 IANA MIME 类型。
	Parts []*Part `json:"parts,omitempty"`
	// 可选。内容的生产者。必须是 'user' 或 'model'。
	Role SpeakerRole `json:"role,omitempty"`
}

// GenerateContentRequest 定义了流式生成的请求结构。
type GenerateContentRequest struct {
	Content           []Content `json:"content,omitempty"`           // 按时间顺序排列的对话内容。
	SystemInstruction string    `json:"systemInstruction,omitempty"` // 系统指令。
	Language          Language  `json:"language,omitempty"`          // 期望的回复语言。
	EnableSearch      bool      `json:"enableSearch,omitempty"`      // 是否启用联网搜索增强。
	Temperature       float32   `json:"temperature,omitempty"`
	TopP              float32   `json:"topP,omitempty"`
}

// LastUserText 返回请求中最后一个用户单元的文本。
func (r *GenerateContentRequest) LastUserText() string {
	for i := len(r.Content) - 1; i >= 0; i-- {
		c := r.Content[i]
		if c.Role != SpeakerUser {
			continue
		}
		var sb strings.Builder
		for _, p := range c.Parts {
			sb.WriteString(p.Text)
		}
		return sb.String()
	}
	return ""
}

// GenerateContentResponse 定义了流式生成中单个增量的结构。
type GenerateContentResponse struct {
	Content      []Content  `json:"content,omitempty"`      // 增量内容。
	Citations    []Citation `json:"citations,omitempty"`    // 本次增量携带的检索引用。
	CreateTime   time.Time  `json:"createTime,omitempty"`   // 响应创建时间。
	ModelVersion string     `json:"modelVersion,omitempty"` // 模型版本。

	// Err 非空时表示流在此处中断，该元素是通道中的最后一个。
	Err error `json:"-"`
}

// Text 拼接响应中所有非思考部分的文本。
func (r *GenerateContentResponse) Text() string {
	if r == nil {
		return ""
	}
	var sb strings.Builder
	for _, c := range r.Content {
		for _, p := range c.Parts {
			if p.Thought {
				continue
			}
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

// Part 定义了消息的单个部分，可以包含文本或内联数据。
type Part struct {
	// 可选。指示该部分是否来自模型的思考。
	Thought bool `json:"thought,omitempty"`
	// 可选。内联字节数据。
	InlineData *Blob `json:"inlineData,omitempty"`
	// 可选。文本部分。
	Text string `json:"text,omitempty"`
}

// Blob 包含了内联的二进制数据。
type Blob struct {
	// 可选。Blob 的显示名称。
	DisplayName string `json:"displayName,omitempty"`
	// 必填。原始字节数据。
	Data []byte `json:"data,omitempty"`
	// 必填。源数据的 IANA 标准 MIME 类型。
	MIMEType string `json:"mimeType,omitempty"`
}

// ImageRequest 是单次图像生成调用的输入。
type ImageRequest struct {
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspectRatio,omitempty"` // 例如 "1:1"
}

// ImageResponse 是单次图像生成调用的输出。
type ImageResponse struct {
	Data     string `json:"data,omitempty"` // base64 编码的图像
	MIMEType string `json:"mimeType,omitempty"`
	Caption  string `json:"caption,omitempty"`
}
