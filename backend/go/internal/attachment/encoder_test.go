package attachment

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"strings"
	"testing"

	"Koro/backend/go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk on fire") }

func TestKindOf(t *testing.T) {
	assert.Equal(t, models.KindImage, KindOf("image/png"))
	assert.Equal(t, models.KindVideo, KindOf("video/mp4"))
	assert.Equal(t, models.KindDocument, KindOf("application/pdf"))
	assert.Equal(t, models.KindDocument, KindOf(""))
	assert.Equal(t, models.KindDocument, KindOf("text/image/png"))
}

func TestEncodeRoundTrip(t *testing.T) {
	payload := []byte("hello koro")
	att, err := NewEncoder(1).Encode("note.txt", "text/plain", bytes.NewReader(payload))
	require.NoError(t, err)

	assert.NotEmpty(t, att.ID)
	assert.Equal(t, models.KindDocument, att.Kind)
	assert.Equal(t, "text/plain", att.MIMEType)
	assert.Equal(t, "note.txt", att.Name)
	assert.Equal(t, int64(len(payload)), att.Size)

	decoded, err := base64.StdEncoding.DecodeString(att.Data)
	require.NoError(t, err)
	assert.Equal(t, payload, decoded)
}

func TestEncodeEchoesDeclaredType(t *testing.T) {
	// 声明的类型原样保留，即使内容看起来是别的东西
	att, err := NewEncoder(1).Encode("clip", "video/webm", strings.NewReader("plain text"))
	require.NoError(t, err)
	assert.Equal(t, "video/webm", att.MIMEType)
	assert.Equal(t, models.KindVideo, att.Kind)
}

func TestEncodeDetectsMissingType(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	att, err := NewEncoder(1).Encode("pic", "", bytes.NewReader(png))
	require.NoError(t, err)
	assert.Equal(t, "image/png", att.MIMEType)
	assert.Equal(t, models.KindImage, att.Kind)
}

func TestEncodeReadFailure(t *testing.T) {
	att, err := NewEncoder(1).Encode("bad", "image/png", failingReader{})
	assert.Error(t, err)
	assert.Empty(t, att.ID)
}

func TestEncodeBatchIndependentFailures(t *testing.T) {
	open := func(s string) func() (io.ReadCloser, error) {
		return func() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader(s)), nil }
	}
	sources := []Source{
		{Name: "a.png", MIMEType: "image/png", Open: open("aaa")},
		{Name: "broken", MIMEType: "image/png", Open: func() (io.ReadCloser, error) { return nil, errors.New("gone") }},
		{Name: "c.pdf", MIMEType: "application/pdf", Open: func() (io.ReadCloser, error) { return io.NopCloser(failingReader{}), nil }},
		{Name: "d.mp4", MIMEType: "video/mp4", Open: open("dddd")},
	}

	results := NewEncoder(2).EncodeBatch(context.Background(), sources)
	require.Len(t, results, 4)

	assert.NoError(t, results[0].Err)
	assert.Equal(t, "a.png", results[0].Attachment.Name)
	assert.Error(t, results[1].Err)
	assert.Error(t, results[2].Err)
	assert.NoError(t, results[3].Err)
	assert.Equal(t, models.KindVideo, results[3].Attachment.Kind)

	ok := Succeeded(results)
	require.Len(t, ok, 2)
	assert.Equal(t, "a.png", ok[0].Name)
	assert.Equal(t, "d.mp4", ok[1].Name)
}

func TestNormalizeDerivesKindFromMIMEType(t *testing.T) {
	data := base64.StdEncoding.EncodeToString([]byte("\x89PNG\r\n\x1a\n"))
	att, err := Normalize(models.Attachment{Name: "pic.png", MIMEType: "image/png", Kind: models.KindVideo, Data: data, Size: 999})
	require.NoError(t, err)

	assert.NotEmpty(t, att.ID)
	assert.Equal(t, models.KindImage, att.Kind)
	assert.Equal(t, int64(8), att.Size)
	assert.Equal(t, "image/png", att.MIMEType)

	kept, err := Normalize(models.Attachment{ID: "a1", Name: "x", MIMEType: "text/plain", Data: data})
	require.NoError(t, err)
	assert.Equal(t, "a1", kept.ID)
	assert.Equal(t, models.KindDocument, kept.Kind)
}

func TestNormalizeDetectsMissingType(t *testing.T) {
	data := base64.StdEncoding.EncodeToString([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"))
	att, err := Normalize(models.Attachment{Name: "pic", Data: data})
	require.NoError(t, err)
	assert.Equal(t, "image/png", att.MIMEType)
	assert.Equal(t, models.KindImage, att.Kind)
}

func TestNormalizeRejectsInvalidData(t *testing.T) {
	_, err := Normalize(models.Attachment{Name: "bad", MIMEType: "image/png", Data: "%%%"})
	assert.ErrorIs(t, err, ErrInvalidData)

	_, err = NormalizeAll([]models.Attachment{
		{Name: "ok", MIMEType: "text/plain", Data: base64.StdEncoding.EncodeToString([]byte("hi"))},
		{Name: "bad", Data: "not base64!"},
	})
	assert.ErrorIs(t, err, ErrInvalidData)
}
