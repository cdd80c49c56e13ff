package catalog

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"wordloop-backend/internal/models"
)

// ParsePDF extracts a word list from a printed vocabulary PDF, one entry per line.
func ParsePDF(path string) ([]models.Word, error) {
	text, err := extractPDFText(path)
	if err != nil {
		return nil, err
	}
	words := parseWordLines(text)
	if len(words) == 0 {
		return nil, fmt.Errorf("no word entries found in %s", path)
	}
	return words, nil
}

func extractPDFText(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var b strings.Builder
	totalPage := reader.NumPage()
	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(content)
		b.WriteString("\n")
	}

	text := normalizeExtractedText(b.String())
	if text == "" {
		return "", fmt.Errorf("no extractable text found in pdf")
	}
	return text, nil
}

// "abandon [əˈbændən] v. to leave behind"; the transcription is optional.
var wordLine = regexp.MustCompile(`^([A-Za-z][A-Za-z'\-]*)\s+(?:(\[[^\]]*\]|/[^/]*/)\s*)?(.+)$`)

func parseWordLines(text string) []models.Word {
	var words []models.Word
	seen := make(map[string]bool)
	for _, line := range strings.Split(text, "\n") {
		m := wordLine.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		headword := m[1]
		key := strings.ToLower(headword)
		if seen[key] {
			continue
		}
		pos, meaning := splitTranslation(strings.TrimSpace(m[3]))
		// prose lines have neither a transcription nor a part of speech
		if meaning == "" || (m[2] == "" && pos == "") {
			continue
		}
		seen[key] = true
		words = append(words, models.Word{
			Headword:     headword,
			Phonetic:     m[2],
			PartOfSpeech: pos,
			Meaning:      meaning,
		})
	}
	return words
}

func normalizeExtractedText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	lines := strings.Split(s, "\n")
	buf := bytes.Buffer{}

	emptyCount := 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			emptyCount++
			if emptyCount > 1 {
				continue
			}
			buf.WriteString("\n")
			continue
		}
		emptyCount = 0
		buf.WriteString(trimmed)
		buf.WriteString("\n")
	}

	return strings.TrimSpace(buf.String())
}
