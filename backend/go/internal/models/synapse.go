package models

// Synapse 是从用户输入中提取出的一条记忆事实，创建后不再修改。
type Synapse struct {
	ID         string `json:"id"`
	Fact       string `json:"fact"`
	Importance int    `json:"importance"`
	Timestamp  int64  `json:"timestamp"` // Unix 毫秒
}
