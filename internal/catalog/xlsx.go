package catalog

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"wordloop-backend/internal/models"
)

// XLSXOptions picks the sheet and the first data row (1-based; row 1 is usually a header).
type XLSXOptions struct {
	Sheet    string
	StartRow int
}

// Column order: word, phonetic, meaning, example sentence, example translation, frequency.
const (
	colWord = iota
	colPhonetic
	colMeaning
	colSentence
	colTranslation
	colFrequency
)

func ParseXLSX(r io.Reader, opts XLSXOptions) ([]models.Word, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := opts.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	start := opts.StartRow
	if start < 1 {
		start = 2
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	var words []models.Word
	for i := start - 1; i < len(rows); i++ {
		row := rows[i]
		cell := func(c int) string {
			if c < len(row) {
				return strings.TrimSpace(row[c])
			}
			return ""
		}

		headword := cell(colWord)
		if headword == "" {
			continue
		}
		pos, meaning := splitTranslation(cell(colMeaning))
		freq, _ := strconv.Atoi(cell(colFrequency))

		words = append(words, models.Word{
			Headword:           headword,
			Phonetic:           cell(colPhonetic),
			PartOfSpeech:       pos,
			Meaning:            meaning,
			ExampleSentence:    cell(colSentence),
			ExampleTranslation: cell(colTranslation),
			Frequency:          freq,
		})
	}
	return words, nil
}
