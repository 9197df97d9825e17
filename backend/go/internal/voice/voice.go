// Package voice 把剧本文本合成为可下载的 WAV 音频。
package voice

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"Koro/backend/go/internal/llm"
)

// Persona 是用户可选的播音角色。
type Persona string

const (
	Gentleman Persona = "gentleman"
	Lady      Persona = "lady"
)

// DefaultSampleRate 是合成服务返回的 PCM 采样率。
const DefaultSampleRate = 24000

const (
	maxScriptRunes = 3000
	readPrompt     = "Read this script with an engaging and clear tone: "
)

var (
	ErrUnknownPersona = errors.New("unknown voice persona")
	ErrEmptyScript    = errors.New("script is empty")
)

var markdownSymbols = regexp.MustCompile("[*#_~`]")

// VoiceName 返回角色对应的预置音色。
func (p Persona) VoiceName() (string, error) {
	switch p {
	case Gentleman, "":
		return "Charon", nil
	case Lady:
		return "Kore", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownPersona, p)
	}
}

// CleanScript 去掉 Markdown 符号并截断到合成服务接受的长度。
func CleanScript(text string) string {
	clean := markdownSymbols.ReplaceAllString(text, "")
	runes := []rune(clean)
	if len(runes) > maxScriptRunes {
		runes = runes[:maxScriptRunes]
	}
	return string(runes)
}

// PCMToWAV 为 16 位单声道 PCM 数据加上 44 字节的 RIFF 头。
func PCMToWAV(pcm []byte, sampleRate int) []byte {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	var buf bytes.Buffer
	buf.Grow(44 + len(pcm))

	le := binary.LittleEndian
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, le, uint32(36+len(pcm)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	_ = binary.Write(&buf, le, uint32(16))           // fmt 块大小
	_ = binary.Write(&buf, le, uint16(1))            // PCM
	_ = binary.Write(&buf, le, uint16(1))            // 单声道
	_ = binary.Write(&buf, le, uint32(sampleRate))   // 采样率
	_ = binary.Write(&buf, le, uint32(sampleRate*2)) // 字节率
	_ = binary.Write(&buf, le, uint16(2))            // 块对齐
	_ = binary.Write(&buf, le, uint16(16))           // 位深

	buf.WriteString("data")
	_ = binary.Write(&buf, le, uint32(len(pcm)))
	buf.Write(pcm)
	return buf.Bytes()
}

// Service 负责语音合成。
type Service struct {
	synth llm.SpeechSynthesizer
}

// NewService 创建语音服务。synth 为 nil 时所有合成请求返回 llm.ErrSpeechUnsupported。
func NewService(synth llm.SpeechSynthesizer) *Service {
	return &Service{synth: synth}
}

// Speak 清理剧本、按角色合成并封装为 WAV。
func (s *Service) Speak(ctx context.Context, text string, persona Persona) ([]byte, error) {
	voiceName, err := persona.VoiceName()
	if err != nil {
		return nil, err
	}
	script := strings.TrimSpace(CleanScript(text))
	if script == "" {
		return nil, ErrEmptyScript
	}
	if s.synth == nil {
		return nil, llm.ErrSpeechUnsupported
	}
	pcm, err := s.synth.Synthesize(ctx, readPrompt+script, voiceName)
	if err != nil {
		return nil, fmt.Errorf("voice synthesis failed: %w", err)
	}
	return PCMToWAV(pcm, DefaultSampleRate), nil
}
