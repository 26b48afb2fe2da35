package main

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestConsoleWriter(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(NewConsoleWriter(&buf, true))

	logger.Warn().Str("bank", "relay").Msg("Commit failed")

	assert.Contains(t, buf.String(), "| WARN  |")
	assert.Contains(t, buf.String(), "Commit failed")
	assert.Contains(t, buf.String(), "bank=relay")
}

func TestFormatLevel(t *testing.T) {
	tests := []struct {
		level string
		want  string
	}{
		{zerolog.LevelTraceValue, "| \x1b[35mTRACE\x1b[0m |"},
		{zerolog.LevelDebugValue, "| \x1b[33mDEBUG\x1b[0m |"},
		{zerolog.LevelInfoValue, "| \x1b[32mINFO \x1b[0m |"},
		{zerolog.LevelWarnValue, "| \x1b[31mWARN \x1b[0m |"},
		{zerolog.LevelErrorValue, "| \x1b[1m\x1b[31mERROR\x1b[0m\x1b[0m |"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatLevel(false)(tt.level), tt.level)
	}

	assert.Equal(t, "| INFO  |", formatLevel(true)(zerolog.LevelInfoValue))
}

func TestThreadSafeWriterKeepsLinesWhole(t *testing.T) {
	var buf bytes.Buffer
	w := NewThreadSafeWriter(&buf)
	line := strings.Repeat("x", 64) + "\n"

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, _ = w.Write([]byte(line))
			}
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	assert.Len(t, lines, 400)
	for _, l := range lines {
		assert.Equal(t, strings.TrimSuffix(line, "\n"), l)
	}
}
