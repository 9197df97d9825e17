// Package attachment 把用户上传的文件转换为可随消息发送的内联附件。
package attachment

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"Koro/backend/go/internal/models"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrInvalidData 表示客户端提交的附件内容不是合法的 base64。
var ErrInvalidData = errors.New("attachment data is not valid base64")

// Source 是一个待编码的文件。
type Source struct {
	Name     string
	MIMEType string // 文件声明的类型，为空时根据内容探测
	Open     func() (io.ReadCloser, error)
}

// Result 是批量编码中单个文件的结果，Err 非空时 Attachment 为零值。
type Result struct {
	Attachment models.Attachment
	Err        error
}

// Encoder 负责附件编码。
type Encoder struct {
	// Parallelism 是批量编码的最大并发读取数。
	Parallelism int
}

// NewEncoder 创建一个 Encoder。
func NewEncoder(parallelism int) *Encoder {
	if parallelism <= 0 {
		parallelism = 4
	}
	return &Encoder{Parallelism: parallelism}
}

// KindOf 根据 MIME 类型前缀推断附件种类。
func KindOf(mimeType string) models.AttachmentKind {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return models.KindImage
	case strings.HasPrefix(mimeType, "video/"):
		return models.KindVideo
	default:
		return models.KindDocument
	}
}

// Encode 读取全部字节并生成附件。读取失败时不产生附件。
// 大小不在这里校验，交给远程服务拒绝。
func (e *Encoder) Encode(name, mimeType string, r io.Reader) (models.Attachment, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return models.Attachment{}, fmt.Errorf("read attachment %q: %w", name, err)
	}
	if mimeType == "" {
		mimeType = mimetype.Detect(data).String()
	}
	return models.Attachment{
		ID:       uuid.NewString(),
		Kind:     KindOf(mimeType),
		Data:     base64.StdEncoding.EncodeToString(data),
		MIMEType: mimeType,
		Name:     name,
		Size:     int64(len(data)),
	}, nil
}

// EncodeSource 打开并编码单个文件。
func (e *Encoder) EncodeSource(src Source) (models.Attachment, error) {
	rc, err := src.Open()
	if err != nil {
		return models.Attachment{}, fmt.Errorf("open attachment %q: %w", src.Name, err)
	}
	defer rc.Close()
	return e.Encode(src.Name, src.MIMEType, rc)
}

// EncodeBatch 并发编码多个文件，结果顺序与输入一致。
// 每个文件独立成功或失败，单个文件的失败不影响其他文件。
func (e *Encoder) EncodeBatch(ctx context.Context, sources []Source) []Result {
	results := make([]Result, len(sources))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.Parallelism)

	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = Result{Err: err}
				return nil
			}
			att, err := e.EncodeSource(src)
			results[i] = Result{Attachment: att, Err: err}
			// 单个文件的错误记录在结果中，不取消整个批次
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Succeeded 返回批量结果中成功编码的附件。
func Succeeded(results []Result) []models.Attachment {
	out := make([]models.Attachment, 0, len(results))
	for _, r := range results {
		if r.Err == nil {
			out = append(out, r.Attachment)
		}
	}
	return out
}

// Decode 返回附件的原始字节。
func Decode(a models.Attachment) ([]byte, error) {
	return base64.StdEncoding.DecodeString(a.Data)
}

// Normalize 校验客户端直接提交的已编码附件并重新计算派生字段。
// Kind 总是由 MIME 类型推断，客户端给出的值被忽略；MIME 类型为空时根据内容探测。
func Normalize(a models.Attachment) (models.Attachment, error) {
	raw, err := Decode(a)
	if err != nil {
		return models.Attachment{}, fmt.Errorf("%w: %q", ErrInvalidData, a.Name)
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.MIMEType == "" {
		a.MIMEType = mimetype.Detect(raw).String()
	}
	a.Kind = KindOf(a.MIMEType)
	a.Size = int64(len(raw))
	return a, nil
}

// NormalizeAll 对每个附件调用 Normalize，任何一个失败即返回错误。
func NormalizeAll(atts []models.Attachment) ([]models.Attachment, error) {
	out := make([]models.Attachment, 0, len(atts))
	for _, a := range atts {
		n, err := Normalize(a)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
