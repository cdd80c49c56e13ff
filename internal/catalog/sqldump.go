// Package catalog turns vocabulary exports into catalog rows for the words table.
package catalog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"wordloop-backend/internal/models"
)

const cet4Prefix = "INSERT INTO `wine_cet4_word`"

var cet4Insert = regexp.MustCompile("^INSERT INTO `wine_cet4_word` VALUES \\((\\d+), '(.*?)', '(.*?)', '(.*?)', '(.*?)', '(.*?)', '(.*?)'\\);")

// ParseSQLDump reads single-row INSERT statements of the CET-4 dump. Rows that
// do not match are skipped and counted.
func ParseSQLDump(r io.Reader) ([]models.Word, int, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)

	var (
		words   []models.Word
		skipped int
		lineNo  int
	)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, cet4Prefix) {
			continue
		}
		w, ok := parseCET4Line(line)
		if !ok {
			skipped++
			slog.Debug("skipping unparseable dump row", "line", lineNo)
			continue
		}
		words = append(words, w)
	}
	if err := sc.Err(); err != nil {
		return nil, skipped, fmt.Errorf("read dump: %w", err)
	}
	return words, skipped, nil
}

func parseCET4Line(line string) (models.Word, bool) {
	m := cet4Insert.FindStringSubmatch(line)
	if m == nil {
		return models.Word{}, false
	}
	field := func(i int) string { return unquoteSQL(m[i]) }

	headword := strings.TrimSpace(field(2))
	if headword == "" {
		return models.Word{}, false
	}

	pos, meaning := splitTranslation(field(4))
	sentence, translation := splitSample(field(7))

	return models.Word{
		Headword:           headword,
		Phonetic:           pickPhonetic(field(3)),
		PartOfSpeech:       pos,
		Meaning:            meaning,
		Distortion:         field(5),
		PhrasesJSON:        phrasesJSON(field(6)),
		ExampleSentence:    sentence,
		ExampleTranslation: translation,
	}, true
}

func unquoteSQL(s string) string {
	s = strings.ReplaceAll(s, "''", "'")
	return strings.ReplaceAll(s, `\'`, "'")
}

// pickPhonetic prefers the British transcription, then the American one, then any bracketed one.
func pickPhonetic(raw string) string {
	for _, marker := range []string{"英:[", "美:["} {
		if start := strings.Index(raw, marker); start >= 0 {
			open := start + len(marker) - 1
			if end := strings.Index(raw[open:], "]"); end >= 0 {
				return raw[open : open+end+1]
			}
		}
	}
	if start := strings.Index(raw, "["); start >= 0 {
		if end := strings.Index(raw[start:], "]"); end >= 0 {
			return raw[start : start+end+1]
		}
	}
	return ""
}

// splitTranslation separates a leading part of speech ("adj.") from the meaning.
func splitTranslation(raw string) (pos, meaning string) {
	if raw == "" {
		return "", ""
	}
	runes := []rune(raw)
	for i, r := range runes {
		if i >= 10 {
			break
		}
		if r == '.' && i > 0 {
			return string(runes[:i+1]), joinLines(strings.TrimSpace(string(runes[i+1:])), "; ")
		}
	}
	return "", joinLines(raw, "; ")
}

func splitLines(s string) []string {
	s = strings.ReplaceAll(s, `\n`, "\n")
	return strings.Split(s, "\n")
}

func joinLines(s, sep string) string {
	return strings.Join(splitLines(s), sep)
}

// splitSample takes the first sentence/translation pair of the samples column.
func splitSample(raw string) (sentence, translation string) {
	lines := splitLines(raw)
	if len(lines) < 2 {
		return "", ""
	}
	sentence = strings.Trim(strings.TrimSpace(lines[0]), `"`)
	translation = strings.TrimSpace(lines[1])
	translation = strings.TrimSuffix(strings.TrimPrefix(translation, "“"), "”")
	return sentence, translation
}

// phrasesJSON pairs alternating phrase/translation lines.
func phrasesJSON(raw string) json.RawMessage {
	phrases := []models.Phrase{}
	lines := splitLines(raw)
	for i := 0; i+1 < len(lines); i += 2 {
		p, t := strings.TrimSpace(lines[i]), strings.TrimSpace(lines[i+1])
		if p != "" && t != "" {
			phrases = append(phrases, models.Phrase{Phrase: p, Translation: t})
		}
	}
	data, _ := json.Marshal(phrases)
	return data
}
