package voice

import (
	"context"
	"encoding/binary"
	"strings"
	"testing"

	"Koro/backend/go/internal/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSynth struct {
	text, voice string
}

func (r *recordingSynth) Synthesize(_ context.Context, text, voice string) ([]byte, error) {
	r.text, r.voice = text, voice
	return []byte{1, 2, 3, 4}, nil
}

func TestPCMToWAVHeader(t *testing.T) {
	pcm := make([]byte, 10)
	wav := PCMToWAV(pcm, 24000)

	require.Len(t, wav, 54)
	assert.Equal(t, "RIFF", string(wav[0:4]))
	assert.Equal(t, uint32(46), binary.LittleEndian.Uint32(wav[4:8]))
	assert.Equal(t, "WAVE", string(wav[8:12]))
	assert.Equal(t, "fmt ", string(wav[12:16]))
	assert.Equal(t, uint32(16), binary.LittleEndian.Uint32(wav[16:20]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(wav[20:22]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(wav[22:24]))
	assert.Equal(t, uint32(24000), binary.LittleEndian.Uint32(wav[24:28]))
	assert.Equal(t, uint32(48000), binary.LittleEndian.Uint32(wav[28:32]))
	assert.Equal(t, uint16(2), binary.LittleEndian.Uint16(wav[32:34]))
	assert.Equal(t, uint16(16), binary.LittleEndian.Uint16(wav[34:36]))
	assert.Equal(t, "data", string(wav[36:40]))
	assert.Equal(t, uint32(10), binary.LittleEndian.Uint32(wav[40:44]))
}

func TestCleanScript(t *testing.T) {
	assert.Equal(t, "Hook: Welcome back", CleanScript("**Hook:** _Welcome_ `back`"))
	long := strings.Repeat("é", 3500)
	assert.Len(t, []rune(CleanScript(long)), 3000)
}

func TestSpeak(t *testing.T) {
	synth := &recordingSynth{}
	svc := NewService(synth)

	wav, err := svc.Speak(context.Background(), "# Intro\nHello there", Lady)
	require.NoError(t, err)
	assert.Equal(t, "Kore", synth.voice)
	assert.Equal(t, "Read this script with an engaging and clear tone: Intro\nHello there", synth.text)
	assert.Len(t, wav, 48)

	_, err = svc.Speak(context.Background(), "hi", Persona("robot"))
	assert.ErrorIs(t, err, ErrUnknownPersona)

	_, err = svc.Speak(context.Background(), "***", Gentleman)
	assert.ErrorIs(t, err, ErrEmptyScript)
}

func TestSpeakWithoutSynthesizer(t *testing.T) {
	_, err := NewService(nil).Speak(context.Background(), "hello", Gentleman)
	assert.ErrorIs(t, err, llm.ErrSpeechUnsupported)
}
