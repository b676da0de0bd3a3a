package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "******3210", MaskPhone("+91 98765-43210"[4:]))
	assert.Equal(t, "********3210", MaskPhone("+91 98765 43210"))
	assert.Equal(t, "***", MaskPhone("123"))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel(""))
}
