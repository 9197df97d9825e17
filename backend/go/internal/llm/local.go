package llm

import (
	"context"
	"regexp"
	"strings"
	"time"

	"Koro/backend/go/internal/models"
)

// LocalGreetings 是本地模式下对问候的全部可能回复。
var LocalGreetings = []string{
	"Koro System Online. Local neural core active. How can I assist your objectives today?",
	"Greetings, operator. Koro is running on its local core. What shall we work on?",
	"Hello. Koro here, operating in offline synchronization mode. State your objective.",
}

const (
	localIdentityReply   = "I am Koro, an experimental neural processing entity developed by Usama. I am currently running on my local core without a remote neural link."
	localCapabilityReply = "In local mode I can hold a simple conversation. Configure a remote credential to unlock web-grounded answers, file analysis and image synthesis."
	localDefaultReply    = "Local neural core engaged. No remote credential is configured, so my responses are limited to this offline channel."
	localImageCaption    = "Visual synthesis requires a remote neural link. Configure a credential to render images."
)

var (
	greetingPattern   = regexp.MustCompile(`(?i)^\W*(?:hi|hello|hey|hola|bonjour|salam|assalam|marhaba|greetings)\b`)
	identityPattern   = regexp.MustCompile(`(?i)\b(?:who are you|what are you|your name|who (?:made|created|built|developed) you)\b`)
	capabilityPattern = regexp.MustCompile(`(?i)\b(?:what can you do|capabilit\w*|features|help me)\b`)
)

// Local 是无凭据时使用的确定性回退生成器，从不访问网络。
type Local struct {
	delay time.Duration
}

// NewLocal 创建本地生成器，delay 为逐词输出的间隔。
func NewLocal(delay time.Duration) *Local {
	return &Local{delay: delay}
}

// Reply 按问候、身份、能力、默认的顺序匹配固定回复。
// 问候的选择只取决于提示长度，相同输入得到相同输出。
func (l *Local) Reply(prompt string) string {
	switch {
	case greetingPattern.MatchString(prompt):
		return LocalGreetings[len(prompt)%len(LocalGreetings)]
	case identityPattern.MatchString(prompt):
		return localIdentityReply
	case capabilityPattern.MatchString(prompt):
		return localCapabilityReply
	default:
		return localDefaultReply
	}
}

// GenerateContentStream 把固定回复逐词输出，保持与远程流相同的调用形态。
func (l *Local) GenerateContentStream(ctx context.Context, req *models.GenerateContentRequest) (<-chan *models.GenerateContentResponse, error) {
	words := strings.SplitAfter(l.Reply(req.LastUserText()), " ")
	ch := make(chan *models.GenerateContentResponse)
	go func() {
		defer close(ch)
		for i, w := range words {
			if i > 0 && l.delay > 0 {
				timer := time.NewTimer(l.delay)
				select {
				case <-ctx.Done():
					timer.Stop()
					return
				case <-timer.C:
				}
			}
			if !send(ctx, ch, textResponse(w)) {
				return
			}
		}
	}()
	return ch, nil
}

// GenerateImage 只返回说明文字，不含图像数据。
func (l *Local) GenerateImage(context.Context, *models.ImageRequest) (*models.ImageResponse, error) {
	return &models.ImageResponse{Caption: localImageCaption}, nil
}

// Synthesize 在本地模式下不可用。
func (l *Local) Synthesize(context.Context, string, string) ([]byte, error) {
	return nil, ErrSpeechUnsupported
}
