package language

import (
	"strings"

	xlanguage "golang.org/x/text/language"
)

// words maps the full-word spellings found in corpus layouts to ISO 639-1.
var words = map[string]string{
	"english":    "en",
	"chinese":    "zh",
	"mandarin":   "zh",
	"spanish":    "es",
	"french":     "fr",
	"german":     "de",
	"italian":    "it",
	"portuguese": "pt",
	"japanese":   "ja",
	"korean":     "ko",
	"russian":    "ru",
	"arabic":     "ar",
	"hindi":      "hi",
	"dutch":      "nl",
	"persian":    "fa",
	"urdu":       "ur",
	"bengali":    "bn",
	"greek":      "el",
	"turkish":    "tr",
	"polish":     "pl",
	"swedish":    "sv",
	"danish":     "da",
	"finnish":    "fi",
}

// ToISO2 converts a language word or ISO 639 code to its shortest ISO 639
// code, two letters where one exists. Unrecognized input returns "".
func ToISO2(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return ""
	}
	if code, ok := words[value]; ok {
		return code
	}
	if len(value) < 2 || len(value) > 3 {
		return ""
	}
	tag, err := xlanguage.Parse(value)
	if err != nil {
		return ""
	}
	base, confidence := tag.Base()
	if confidence == xlanguage.No {
		return ""
	}
	return base.String()
}
