package llm

import (
	"context"
	"strings"
	"testing"
	"time"

	"Koro/backend/go/internal/config"
	"Koro/backend/go/internal/models"
	"Koro/backend/go/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userRequest(text string) *models.GenerateContentRequest {
	return &models.GenerateContentRequest{Content: []models.Content{{
		Role:  models.SpeakerUser,
		Parts: []*models.Part{{Text: text}},
	}}}
}

func collect(t *testing.T, ch <-chan *models.GenerateContentResponse) (string, int) {
	t.Helper()
	var sb strings.Builder
	n := 0
	for resp := range ch {
		require.NoError(t, resp.Err)
		sb.WriteString(resp.Text())
		n++
	}
	return sb.String(), n
}

func TestLocalGreetingIsFromFixedSet(t *testing.T) {
	local := NewLocal(0)
	ch, err := local.GenerateContentStream(context.Background(), userRequest("hello"))
	require.NoError(t, err)

	text, increments := collect(t, ch)
	assert.Contains(t, LocalGreetings, text)
	assert.Greater(t, increments, 1)

	// 相同输入得到相同回复
	assert.Equal(t, text, local.Reply("hello"))
}

func TestLocalReplyTable(t *testing.T) {
	local := NewLocal(0)
	assert.Contains(t, LocalGreetings, local.Reply("Hey Koro"))
	assert.Equal(t, localIdentityReply, local.Reply("who are you?"))
	assert.Equal(t, localCapabilityReply, local.Reply("what can you do"))
	assert.Equal(t, localDefaultReply, local.Reply("tell me about rust"))
	// "this" 不是问候
	assert.Equal(t, localDefaultReply, local.Reply("this is a test"))
}

func TestLocalStreamStopsOnCancel(t *testing.T) {
	local := NewLocal(20 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := local.GenerateContentStream(ctx, userRequest("tell me about rust"))
	require.NoError(t, err)

	<-ch
	cancel()

	// 通道必须在有限时间内关闭
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("stream was not closed after cancellation")
		}
	}
}

func TestLocalImageHasNoData(t *testing.T) {
	res, err := NewLocal(0).GenerateImage(context.Background(), &models.ImageRequest{Prompt: "a logo"})
	require.NoError(t, err)
	assert.Empty(t, res.Data)
	assert.NotEmpty(t, res.Caption)
}

func TestNewClientFallsBackWithoutCredential(t *testing.T) {
	cfg := config.Default().LLM
	cfg.APIKey = "PLACEHOLDER_API_KEY"

	gen, err := NewClient(context.Background(), cfg, logger.Discard())
	require.NoError(t, err)
	assert.IsType(t, &Local{}, gen)

	cfg.APIKey = "real-looking-key"
	cfg.ForceLocal = true
	gen, err = NewClient(context.Background(), cfg, logger.Discard())
	require.NoError(t, err)
	assert.IsType(t, &Local{}, gen)
}

func TestNewClientUnknownProvider(t *testing.T) {
	cfg := config.Default().LLM
	cfg.Provider = "carrier-pigeon"
	_, err := NewClient(context.Background(), cfg, logger.Discard())
	assert.Error(t, err)
}
