package cmd

import "time"

// 以下类型只声明 CLI 需要展示的字段。

type user struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Provider string `json:"provider"`
}

type authResponse struct {
	Token string `json:"token"`
	User  user   `json:"user"`
}

type chatTurn struct {
	ID        string   `json:"id"`
	Role      string   `json:"role"`
	Content   string   `json:"content"`
	Streaming bool     `json:"isThinking"`
	Reasoning []string `json:"thoughtProcess"`
	Citations []struct {
		Title string `json:"title"`
		URL   string `json:"uri"`
	} `json:"groundingChunks"`
}

type chatSession struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Turns     []chatTurn `json:"messages"`
	CreatedAt time.Time  `json:"createdAt"`
}

type sessionList struct {
	Sessions         []chatSession `json:"sessions"`
	CurrentSessionID string        `json:"currentSessionId"`
}

type synapse struct {
	ID         string `json:"id"`
	Fact       string `json:"fact"`
	Importance int    `json:"importance"`
	Timestamp  int64  `json:"timestamp"`
}

type update struct {
	SessionID string   `json:"sessionId"`
	Turn      chatTurn `json:"turn"`
}

type outcome struct {
	SessionID  string    `json:"sessionId"`
	Reply      *chatTurn `json:"reply"`
	Failure    *chatTurn `json:"failure"`
	State      string    `json:"state"`
	DurationMs int64     `json:"durationMs"`
}

type clientMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Prompt    string `json:"prompt,omitempty"`
}

type serverMessage struct {
	Type      string   `json:"type"`
	SessionID string   `json:"sessionId"`
	Update    *update  `json:"update"`
	Outcome   *outcome `json:"outcome"`
	Error     string   `json:"error"`
}
