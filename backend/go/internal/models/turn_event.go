package models

import "time"

// TurnEvent 是一轮对话结束后发布到消息队列的事件。
type TurnEvent struct {
	UserID     string     `json:"user_id"`
	SessionID  string     `json:"session_id"`
	TurnID     string     `json:"turn_id"`
	Mode       IntentMode `json:"mode"`
	State      string     `json:"state"`
	Citations  int        `json:"citations"`
	Characters int        `json:"characters,omitempty"`
	DurationMs int64      `json:"duration_ms"`
	Timestamp  time.Time  `json:"timestamp"`
}
