package avatar

import (
	"context"
	"testing"

	"Koro/backend/go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGenerator struct {
	req *models.ImageRequest
	res *models.ImageResponse
}

func (s *stubGenerator) GenerateContentStream(context.Context, *models.GenerateContentRequest) (<-chan *models.GenerateContentResponse, error) {
	return nil, nil
}

func (s *stubGenerator) GenerateImage(_ context.Context, req *models.ImageRequest) (*models.ImageResponse, error) {
	s.req = req
	return s.res, nil
}

func TestDetectStyle(t *testing.T) {
	assert.Equal(t, Cyberpunk, DetectStyle("a neon samurai avatar"))
	assert.Equal(t, Anime, DetectStyle("Anime portrait of a fox girl"))
	assert.Equal(t, Render3D, DetectStyle("3D avatar of my dog"))
	assert.Equal(t, PixelArt, DetectStyle("8-bit hero headshot"))
	assert.Equal(t, OilPainting, DetectStyle("oil painting portrait of grandpa"))
	assert.Equal(t, Professional, DetectStyle("avatar for my LinkedIn"))
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt("  a red fox  ", Anime)
	assert.Contains(t, p, "TASK: Generate a professional, high-quality square profile avatar.")
	assert.Contains(t, p, "SUBJECT: a red fox.")
	assert.Contains(t, p, "VISUAL STYLE: High-end anime character design")
	assert.Contains(t, p, "1:1 aspect ratio")

	assert.Contains(t, BuildPrompt("x", Style("vapor")), stylePrompts[Professional])
}

func TestGenerate(t *testing.T) {
	gen := &stubGenerator{res: &models.ImageResponse{Data: "aGk=", MIMEType: "image/png"}}
	svc := NewService(gen)

	res, err := svc.Generate(context.Background(), "a cyberpunk cat", "")
	require.NoError(t, err)
	assert.Equal(t, "aGk=", res.Data)
	assert.Equal(t, AspectRatio, gen.req.AspectRatio)
	assert.Contains(t, gen.req.Prompt, stylePrompts[Cyberpunk])

	_, err = svc.Generate(context.Background(), "a cat", Style("vapor"))
	assert.ErrorIs(t, err, ErrUnknownStyle)

	gen.res = &models.ImageResponse{Caption: "no link"}
	_, err = svc.Generate(context.Background(), "a cat", Professional)
	assert.Error(t, err)
}
