package models

import "time"

// TurnRole 是对话中一条消息的角色。
type TurnRole string

const (
	RoleUser      TurnRole = "user"
	RoleAssistant TurnRole = "assistant"
	RoleSystem    TurnRole = "system"
)

// AttachmentKind 在编码时根据 MIME 类型推断一次。
type AttachmentKind string

const (
	KindImage    AttachmentKind = "image"
	KindVideo    AttachmentKind = "video"
	KindDocument AttachmentKind = "document"
)

// Attachment 是随消息发送的文件，数据以 base64 文本保存，创建后不再修改。
type Attachment struct {
	ID       string         `json:"id"`
	Kind     AttachmentKind `json:"type"`
	Data     string         `json:"data"`
	MIMEType string         `json:"mimeType"`
	Name     string         `json:"name,omitempty"`
	Size     int64          `json:"size,omitempty"`
}

// Citation 是联网搜索增强返回的来源引用。
type Citation struct {
	URL     string `json:"uri"`
	Title   string `json:"title"`
	Snippet string `json:"snippet,omitempty"`
}

// Character 是剧本工坊要求模型内嵌输出的角色名单中的一项。
type Character struct {
	Name        string `json:"name"`
	Role        string `json:"role,omitempty"`
	Voice       string `json:"voice,omitempty"`
	Description string `json:"description,omitempty"`
}

// ChatTurn 是会话中的一条消息。
// 助手消息的 ID 在创建时固定，流式更新期间按 ID 原地替换。
type ChatTurn struct {
	ID          string       `json:"id"`
	Role        TurnRole     `json:"role"`
	Content     string       `json:"content"`
	Timestamp   time.Time    `json:"timestamp"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Citations   []Citation   `json:"groundingChunks,omitempty"`
	Reasoning   []string     `json:"thoughtProcess,omitempty"`
	Roster      []Character  `json:"roster,omitempty"`
	Streaming   bool         `json:"isThinking,omitempty"`
}

// ChatSession 是一段有序的对话。
type ChatSession struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	TitleLocked bool       `json:"titleLocked,omitempty"`
	Turns       []ChatTurn `json:"messages"`
	CreatedAt   time.Time  `json:"createdAt"`
}
