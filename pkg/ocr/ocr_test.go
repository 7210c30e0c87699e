package ocr

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type strategyStub struct {
	name     string
	text     string
	err      error
	attempts int
}

func (s *strategyStub) Name() string { return s.name }

func (s *strategyStub) Attempt(_ context.Context, _ Image) (string, error) {
	s.attempts++
	return s.text, s.err
}

func TestChainFirstStrategyWins(t *testing.T) {
	first := &strategyStub{name: "vision_ocr", text: "recognized text"}
	second := &strategyStub{name: "local_ocr", text: "should not run"}
	chain := NewChain(zerolog.Nop(), first, second)

	result := chain.Run(context.Background(), Image{Data: []byte("img")})
	require.True(t, result.Ok())
	require.Equal(t, "recognized text", result.Text)
	require.Equal(t, "vision_ocr", result.Method)
	require.Zero(t, second.attempts)
}

func TestChainFallsThroughOnError(t *testing.T) {
	first := &strategyStub{name: "vision_ocr", err: ErrUnavailable}
	second := &strategyStub{name: "local_ocr", text: "  local text  "}
	chain := NewChain(zerolog.Nop(), first, second)

	result := chain.Run(context.Background(), Image{Data: []byte("img")})
	require.True(t, result.Ok())
	require.Equal(t, "local text", result.Text)
	require.Equal(t, "local_ocr", result.Method)
	require.Equal(t, 1, first.attempts)
}

func TestChainSkipsEmptyText(t *testing.T) {
	first := &strategyStub{name: "vision_ocr", text: "   \n  "}
	second := &strategyStub{name: "local_ocr", text: "readable"}
	chain := NewChain(zerolog.Nop(), first, second)

	result := chain.Run(context.Background(), Image{})
	require.Equal(t, "local_ocr", result.Method)
}

func TestChainAllFail(t *testing.T) {
	first := &strategyStub{name: "vision_ocr", err: errors.New("rate limited")}
	second := &strategyStub{name: "local_ocr", err: ErrUnavailable}
	chain := NewChain(zerolog.Nop(), first, second)

	result := chain.Run(context.Background(), Image{})
	require.False(t, result.Ok())
	require.Zero(t, result)
}

func TestResultOk(t *testing.T) {
	require.False(t, Result{}.Ok())
	require.False(t, Result{Text: "text"}.Ok())
	require.False(t, Result{Method: "local_ocr", Text: "   "}.Ok())
	require.True(t, Result{Method: "local_ocr", Text: "text"}.Ok())
}
