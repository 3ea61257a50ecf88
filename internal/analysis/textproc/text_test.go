package textproc

import (
	"strings"
	"testing"

	"legal-analyzer/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Clean
// ==========================

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "crlf and tabs", in: "1. Payment\r\n\tThe tenant  shall pay.", want: "1. Payment\nThe tenant shall pay."},
		{name: "page artifacts", in: "First paragraph. Page 2 of 10\n\n[Page 3] Second paragraph.", want: "First paragraph.\n\nSecond paragraph."},
		{name: "collapses blank runs", in: "A\n\n\n\n  \nB", want: "A\n\nB"},
		{name: "keeps paragraph break", in: "  A\n\nB  ", want: "A\n\nB"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.in))
		})
	}
}

func TestStartsSection(t *testing.T) {
	assert.True(t, StartsSection("1. Definitions"))
	assert.True(t, StartsSection("(2) Payment"))
	assert.True(t, StartsSection("B. Term"))
	assert.True(t, StartsSection("(c) Notices"))
	assert.True(t, StartsSection("Article 4 Liability"))
	assert.True(t, StartsSection("Section 12"))
	assert.False(t, StartsSection("The parties agree"))
	assert.False(t, StartsSection("section 12"))
}

// ==========================
// Chunk
// ==========================

func TestChunk_Empty(t *testing.T) {
	assert.Nil(t, Chunk("   ", 100, 10))
}

func TestChunk_MergesSmallSections(t *testing.T) {
	text := "1. First section text.\n2. Second section text."
	chunks := Chunk(text, 2000, 200)
	require.Len(t, chunks, 1)
	assert.Equal(t, "1. First section text.\n\n2. Second section text.", chunks[0])
}

func TestChunk_SplitsAtSections(t *testing.T) {
	first := "1. " + strings.Repeat("alpha ", 10)
	second := "2. " + strings.Repeat("beta ", 10)
	chunks := Chunk(first+"\n"+second, 80, 0)
	require.Len(t, chunks, 2)
	assert.True(t, strings.HasPrefix(chunks[0], "1."))
	assert.True(t, strings.HasPrefix(chunks[1], "2."))
}

func TestChunk_NeverExceedsMax(t *testing.T) {
	text := strings.Repeat("obligation ", 500)
	chunks := Chunk(text, 200, 200)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 200)
	}
}

func TestChunk_OverlapRepeatsWords(t *testing.T) {
	words := make([]string, 0, 100)
	for i := 0; i < 100; i++ {
		words = append(words, "w"+strings.Repeat("x", i%5))
	}
	chunks := Chunk(strings.Join(words, " "), 100, 40)
	require.Greater(t, len(chunks), 1)

	firstWords := strings.Fields(chunks[0])
	secondWords := strings.Fields(chunks[1])
	overlap := minInt(4, len(firstWords)/4)
	assert.Equal(t, firstWords[len(firstWords)-overlap:], secondWords[:overlap])
}

func TestChunk_OversizeWord(t *testing.T) {
	long := strings.Repeat("x", 50)
	chunks := Chunk("tiny "+long+" end", 20, 0)
	assert.Equal(t, []string{"tiny", long, "end"}, chunks)
}

// ==========================
// Stats and uploads
// ==========================

func TestComputeStats(t *testing.T) {
	s := ComputeStats("one two three\n\nfour five")
	assert.Equal(t, 5, s.WordCount)
	assert.Equal(t, 3, s.LineCount)
	assert.Equal(t, 2, s.ParagraphCount)
	assert.Equal(t, 1, s.EstimatedPages)
	assert.Equal(t, Stats{}, ComputeStats(""))
}

func TestValidateUpload(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		size     int64
		code     errors.ErrorCode
		warnings int
	}{
		{name: "pdf ok", filename: "lease.PDF", size: 1024},
		{name: "large docx warns", filename: "contract.docx", size: WarnUploadBytes + 1, warnings: 1},
		{name: "too large", filename: "contract.txt", size: MaxUploadBytes + 1, code: errors.ErrCodeFileTooLarge},
		{name: "unsupported", filename: "image.png", size: 10, code: errors.ErrCodeUnsupportedFileType},
		{name: "no extension", filename: "README", size: 10, code: errors.ErrCodeUnsupportedFileType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warnings, err := ValidateUpload(tt.filename, tt.size)
			if tt.code != "" {
				require.Error(t, err)
				assert.True(t, errors.HasCode(err, tt.code))
				return
			}
			require.NoError(t, err)
			assert.Len(t, warnings, tt.warnings)
		})
	}
}

func TestDecodeText(t *testing.T) {
	out, err := DecodeText([]byte("\xef\xbb\xbfHello"))
	require.NoError(t, err)
	assert.Equal(t, "Hello", out)

	out, err = DecodeText([]byte{'c', 'a', 'f', 0xe9})
	require.NoError(t, err)
	assert.Equal(t, "café", out)
}
