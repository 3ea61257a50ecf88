// internal/analysis/textproc/text.go
package textproc

import (
	"math"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"legal-analyzer/internal/common/errors"

	"golang.org/x/text/encoding/charmap"
)

const (
	MaxUploadBytes  int64 = 50 * 1024 * 1024
	WarnUploadBytes int64 = 10 * 1024 * 1024

	DefaultChunkSize    = 2000
	DefaultChunkOverlap = 200

	wordsPerPage = 500
)

// AllowedExtensions are the upload types the extraction collaborator understands.
var AllowedExtensions = []string{".pdf", ".docx", ".txt"}

// SectionPatterns recognise the start of a numbered section or clause.
var SectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\d+\.\s+`),
	regexp.MustCompile(`^\(\d+\)\s+`),
	regexp.MustCompile(`^[A-Z]\.\s+`),
	regexp.MustCompile(`^\([a-z]\)\s+`),
	regexp.MustCompile(`^Article\s+\d+`),
	regexp.MustCompile(`^Section\s+\d+`),
	regexp.MustCompile(`^Chapter\s+\d+`),
}

var (
	horizontalSpace = regexp.MustCompile(`[ \t\f\v\x{00A0}]+`)
	pageOfArtifact  = regexp.MustCompile(`(?i)page \d+ of \d+`)
	pageArtifact    = regexp.MustCompile(`\[Page \d+\]`)
	trailingSpace   = regexp.MustCompile(`(?m)[ ]+$|^[ ]+`)
	blankLines      = regexp.MustCompile(`\n\s*\n(\s*\n)+`)
)

// StartsSection reports whether text begins with a section-numbering pattern.
func StartsSection(text string) bool {
	for _, p := range SectionPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// Clean normalises extracted text. Line endings become LF, runs of horizontal
// whitespace collapse to one space, page artifacts are removed and three or more
// line breaks shrink to a single blank line. Paragraph breaks survive.
func Clean(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = pageOfArtifact.ReplaceAllString(text, "")
	text = pageArtifact.ReplaceAllString(text, "")
	text = horizontalSpace.ReplaceAllString(text, " ")
	text = trailingSpace.ReplaceAllString(text, "")
	text = blankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// Chunk splits text into pieces of at most maxSize runes, preferring section
// boundaries. Sections longer than maxSize are split by words with a small
// word overlap between consecutive chunks.
func Chunk(text string, maxSize, overlap int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if maxSize <= 0 {
		maxSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}

	var chunks []string
	current := ""
	for _, section := range splitSections(text) {
		if runeLen(current)+runeLen(section) <= maxSize {
			if current == "" {
				current = section
			} else {
				current += "\n\n" + section
			}
			continue
		}

		if current != "" {
			chunks = append(chunks, strings.TrimSpace(current))
		}
		if runeLen(section) > maxSize {
			chunks = append(chunks, splitLargeSection(section, maxSize, overlap)...)
			current = ""
		} else {
			current = section
		}
	}
	if current != "" {
		chunks = append(chunks, strings.TrimSpace(current))
	}

	out := chunks[:0]
	for _, c := range chunks {
		if strings.TrimSpace(c) != "" {
			out = append(out, c)
		}
	}
	return out
}

func splitSections(text string) []string {
	var sections []string
	var current []string

	flush := func() {
		if len(current) == 0 {
			return
		}
		if s := strings.Join(current, "\n"); strings.TrimSpace(s) != "" {
			sections = append(sections, s)
		}
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			if len(current) > 0 {
				current = append(current, "")
			}
			continue
		}
		if StartsSection(line) && len(current) > 0 {
			flush()
			current = []string{line}
			continue
		}
		current = append(current, line)
	}
	flush()
	return sections
}

func splitLargeSection(section string, maxSize, overlap int) []string {
	words := strings.Fields(section)
	var chunks []string

	i := 0
	for i < len(words) {
		var chunkWords []string
		size := 0
		for i < len(words) && size < maxSize {
			n := runeLen(words[i]) + 1
			if size+n > maxSize {
				break
			}
			chunkWords = append(chunkWords, words[i])
			size += n
			i++
		}
		// a single word longer than maxSize becomes its own chunk
		if len(chunkWords) == 0 {
			chunks = append(chunks, words[i])
			i++
			continue
		}

		chunks = append(chunks, strings.Join(chunkWords, " "))
		if i < len(words) {
			i -= minInt(overlap/10, len(chunkWords)/4)
		}
	}
	return chunks
}

// Stats summarises a document body.
type Stats struct {
	WordCount      int `json:"wordCount"`
	CharCount      int `json:"charCount"`
	LineCount      int `json:"lineCount"`
	ParagraphCount int `json:"paragraphCount"`
	EstimatedPages int `json:"estimatedPages"`
}

func ComputeStats(text string) Stats {
	if text == "" {
		return Stats{}
	}
	words := len(strings.Fields(text))
	paragraphs := 0
	for _, p := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(p) != "" {
			paragraphs++
		}
	}
	return Stats{
		WordCount:      words,
		CharCount:      runeLen(text),
		LineCount:      strings.Count(text, "\n") + 1,
		ParagraphCount: paragraphs,
		EstimatedPages: int(math.Ceil(float64(words) / wordsPerPage)),
	}
}

// ValidateUpload checks the extension and size of an upload. Files over
// WarnUploadBytes are accepted with a warning.
func ValidateUpload(filename string, size int64) (warnings []string, err error) {
	ext := strings.ToLower(filepath.Ext(filename))
	allowed := false
	for _, a := range AllowedExtensions {
		if ext == a {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, errors.NewUnsupportedFileTypeError(ext)
	}
	if size > MaxUploadBytes {
		return nil, errors.NewFileTooLargeError(size, MaxUploadBytes)
	}
	if size > WarnUploadBytes {
		warnings = append(warnings, "Large file size may take longer to process")
	}
	return warnings, nil
}

// DecodeText returns the body of a .txt upload as UTF-8, reading it as Latin-1
// when it is not valid UTF-8.
func DecodeText(b []byte) (string, error) {
	b = []byte(strings.TrimPrefix(string(b), "\ufeff"))
	if utf8.Valid(b) {
		return string(b), nil
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
