package models

import (
	"encoding/json"
	"time"
)

type Word struct {
	ID                 int64           `json:"id"`
	Headword           string          `json:"word"`
	Phonetic           string          `json:"phonetic"`
	Meaning            string          `json:"meaning"`
	PartOfSpeech       string          `json:"part_of_speech"`
	ExampleSentence    string          `json:"example_sentence"`
	ExampleTranslation string          `json:"example_translation"`
	Distortion         string          `json:"distortion"`
	PhrasesJSON        json.RawMessage `json:"phrases"`
	Frequency          int             `json:"frequency"`
	CreatedAt          time.Time       `json:"created_at"`
}

// Phrase is one entry of Word.PhrasesJSON.
type Phrase struct {
	Phrase      string `json:"phrase"`
	Translation string `json:"translation"`
}
