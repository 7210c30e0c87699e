package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/smartgrade-ai/smartgrade-go-api/pkg/ocr"
	"github.com/smartgrade-ai/smartgrade-go-api/pkg/pdfdoc"
)

type readerStub struct {
	pages      []string
	extractErr error
	rendered   []pdfdoc.RenderedPage
	renderErr  error
}

func (r *readerStub) ExtractPages(_ []byte) ([]string, error) {
	return r.pages, r.extractErr
}

func (r *readerStub) RenderPages(_ []byte, _ int) ([]pdfdoc.RenderedPage, error) {
	return r.rendered, r.renderErr
}

type chainStub struct {
	results []ocr.Result
	images  []ocr.Image
}

func (c *chainStub) Run(_ context.Context, img ocr.Image) ocr.Result {
	c.images = append(c.images, img)
	if len(c.results) == 0 {
		return ocr.Result{}
	}
	result := c.results[0]
	if len(c.results) > 1 {
		c.results = c.results[1:]
	}
	return result
}

var pngBytes = []byte("\x89PNG\r\n\x1a\n0000000000")

func pdfBytes(padding int) []byte {
	return []byte("%PDF-1.7\n" + strings.Repeat("x", padding))
}

func newTestExtractor(reader DocumentReader, chain OCRChain, cache *redis.Client, cfg ExtractionConfig) ExtractionService {
	return NewExtractionService(reader, chain, cache, cfg, testLogger())
}

func TestExtractPlainText(t *testing.T) {
	svc := newTestExtractor(&readerStub{}, &chainStub{}, nil, ExtractionConfig{})

	result, err := svc.Extract(context.Background(), ExtractionInput{
		FileName: "answers.txt",
		Data:     []byte("What is osmosis? Movement of water."),
	})
	require.NoError(t, err)
	require.Equal(t, MethodText, result.Method)
	require.Equal(t, "What is osmosis? Movement of water.", result.Text)
	require.Equal(t, 35, result.Characters)
	require.False(t, result.Cached)
}

func TestExtractDigitalPDFThreshold(t *testing.T) {
	longPage := strings.Repeat("a", 51)
	reader := &readerStub{pages: []string{"  " + longPage + "  "}}
	chain := &chainStub{}
	svc := newTestExtractor(reader, chain, nil, ExtractionConfig{DigitalTextThreshold: 50})

	result, err := svc.Extract(context.Background(), ExtractionInput{FileName: "paper.pdf", Data: pdfBytes(64)})
	require.NoError(t, err)
	require.Equal(t, MethodDigitalPDF, result.Method)
	require.Equal(t, longPage, result.Text)
	require.Empty(t, chain.images, "digital PDFs must not reach OCR")
}

func TestExtractShortTextFallsBackToOCR(t *testing.T) {
	// Exactly at the threshold is not enough for the digital path.
	reader := &readerStub{
		pages: []string{strings.Repeat("a", 50)},
		rendered: []pdfdoc.RenderedPage{
			{Number: 1, JPEG: []byte("jpeg-1")},
			{Number: 2, JPEG: []byte("jpeg-2")},
		},
	}
	chain := &chainStub{results: []ocr.Result{
		{Text: "first page text", Method: ocr.MethodVision},
		{Text: "second page text", Method: ocr.MethodVision},
	}}
	svc := newTestExtractor(reader, chain, nil, ExtractionConfig{DigitalTextThreshold: 50})

	result, err := svc.Extract(context.Background(), ExtractionInput{
		FileName: "scan.pdf",
		Data:     pdfBytes(64),
		APIKey:   "gsk_test",
	})
	require.NoError(t, err)
	require.Equal(t, ocr.MethodVision, result.Method)
	require.Contains(t, result.Text, "--- Page 1 ---\nfirst page text")
	require.Contains(t, result.Text, "--- Page 2 ---\nsecond page text")
	require.Empty(t, result.Note)

	require.Len(t, chain.images, 2)
	require.Equal(t, "image/jpeg", chain.images[0].MIMEType)
	require.Equal(t, "page 1 of 2", chain.images[0].Context)
	require.Equal(t, "gsk_test", chain.images[0].APIKey)
}

func TestExtractLocalOCRNote(t *testing.T) {
	reader := &readerStub{
		pages:    []string{""},
		rendered: []pdfdoc.RenderedPage{{Number: 1, JPEG: []byte("jpeg-1")}},
	}
	chain := &chainStub{results: []ocr.Result{{Text: "handwritten text", Method: ocr.MethodLocal}}}
	svc := newTestExtractor(reader, chain, nil, ExtractionConfig{})

	result, err := svc.Extract(context.Background(), ExtractionInput{FileName: "scan.pdf", Data: pdfBytes(64)})
	require.NoError(t, err)
	require.Equal(t, ocr.MethodLocal, result.Method)
	require.Equal(t, localOCRNote, result.Note)
}

func TestExtractNoOCRAvailable(t *testing.T) {
	reader := &readerStub{
		pages:    []string{""},
		rendered: []pdfdoc.RenderedPage{{Number: 1, JPEG: []byte("jpeg-1")}},
	}
	svc := newTestExtractor(reader, &chainStub{}, nil, ExtractionConfig{})

	result, err := svc.Extract(context.Background(), ExtractionInput{FileName: "scan.pdf", Data: pdfBytes(64)})
	require.NoError(t, err)
	require.Equal(t, MethodFailed, result.Method)
	require.Contains(t, result.Text, "[ERROR] No OCR method available")
}

func TestExtractCorruptPDF(t *testing.T) {
	reader := &readerStub{extractErr: errors.New("broken xref table")}
	svc := newTestExtractor(reader, &chainStub{}, nil, ExtractionConfig{})

	result, err := svc.Extract(context.Background(), ExtractionInput{FileName: "bad.pdf", Data: pdfBytes(64)})
	require.NoError(t, err)
	require.Equal(t, MethodFailed, result.Method)
	require.Contains(t, result.Text, "[PDF extraction error")
}

func TestExtractImage(t *testing.T) {
	chain := &chainStub{results: []ocr.Result{{Text: "transcribed answer", Method: ocr.MethodVision}}}
	svc := newTestExtractor(&readerStub{}, chain, nil, ExtractionConfig{})

	result, err := svc.Extract(context.Background(), ExtractionInput{
		FileName: "photo.png",
		Data:     pngBytes,
		APIKey:   "gsk_test",
	})
	require.NoError(t, err)
	require.Equal(t, ocr.MethodVision, result.Method)
	require.Equal(t, "transcribed answer", result.Text)

	require.Len(t, chain.images, 1)
	require.Equal(t, "image/png", chain.images[0].MIMEType)
}

func TestExtractUnsupportedType(t *testing.T) {
	svc := newTestExtractor(&readerStub{}, &chainStub{}, nil, ExtractionConfig{})

	zip := append([]byte("PK\x03\x04"), make([]byte, 32)...)
	result, err := svc.Extract(context.Background(), ExtractionInput{FileName: "archive.zip", Data: zip})
	require.NoError(t, err)
	require.Equal(t, MethodFailed, result.Method)
	require.Contains(t, result.Text, "Unsupported file type")
}

func TestExtractFileTooLarge(t *testing.T) {
	svc := newTestExtractor(&readerStub{}, &chainStub{}, nil, ExtractionConfig{MaxUploadMB: 1})

	_, err := svc.Extract(context.Background(), ExtractionInput{
		FileName: "huge.pdf",
		Data:     make([]byte, 2*1024*1024),
	})
	require.ErrorIs(t, err, ErrFileTooLarge)
}

func TestExtractCacheHit(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	cache := redis.NewClient(&redis.Options{Addr: server.Addr()})
	chain := &chainStub{results: []ocr.Result{{Text: "first run", Method: ocr.MethodVision}}}
	svc := newTestExtractor(&readerStub{}, chain, cache, ExtractionConfig{})

	input := ExtractionInput{FileName: "photo.png", Data: pngBytes, APIKey: "gsk_test"}

	first, err := svc.Extract(context.Background(), input)
	require.NoError(t, err)
	require.False(t, first.Cached)
	require.Len(t, chain.images, 1)

	second, err := svc.Extract(context.Background(), input)
	require.NoError(t, err)
	require.True(t, second.Cached)
	require.Equal(t, first.Text, second.Text)
	require.Equal(t, first.Method, second.Method)
	require.Len(t, chain.images, 1, "cache hit must not re-run OCR")
}

func TestExtractFailuresAreNotCached(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	cache := redis.NewClient(&redis.Options{Addr: server.Addr()})
	chain := &chainStub{}
	svc := newTestExtractor(&readerStub{}, chain, cache, ExtractionConfig{})

	input := ExtractionInput{FileName: "photo.png", Data: pngBytes}

	first, err := svc.Extract(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, MethodFailed, first.Method)

	second, err := svc.Extract(context.Background(), input)
	require.NoError(t, err)
	require.False(t, second.Cached)
	require.Len(t, chain.images, 2, "failed extractions must be retried")
}
