package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNew_Level(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, New("debug", "json").GetLevel())
	assert.Equal(t, zerolog.InfoLevel, New("", "console").GetLevel())
	assert.Equal(t, zerolog.InfoLevel, New("chatty", "console").GetLevel())
	assert.Equal(t, zerolog.WarnLevel, New("WARN", "console").GetLevel())
}

func TestNewWithWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf)

	log.Info().Msg("test message")
	assert.Contains(t, buf.String(), "test message")
}

func TestFromContext(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := WithContext(context.Background(), NewWithWriter(buf))

	l := FromContext(ctx)
	l.Info().Msg("test")
	assert.NotZero(t, buf.Len())
}

func TestFromContext_DefaultLogger(t *testing.T) {
	log := FromContext(context.Background())
	assert.NotEqual(t, zerolog.Disabled, log.GetLevel())
}

func TestWithAccount(t *testing.T) {
	buf := &bytes.Buffer{}
	l := WithAccount(NewWithWriter(buf), "checking")
	l.Info().Msg("imported")
	assert.Contains(t, buf.String(), `"account":"checking"`)
}
