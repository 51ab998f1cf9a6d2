package language

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// bibliographic maps ISO 639-2/B codes onto their terminology equivalents,
// which is the form golang.org/x/text understands.
var bibliographic = map[string]string{
	"alb": "sq", "arm": "hy", "baq": "eu", "bur": "my", "chi": "zh",
	"cze": "cs", "dut": "nl", "fre": "fr", "geo": "ka", "ger": "de",
	"gre": "el", "ice": "is", "mac": "mk", "may": "ms", "per": "fa",
	"rum": "ro", "slo": "sk", "tib": "bo", "wel": "cy",
}

// wordForms maps lowercase English language names to ISO 639-1 codes for the
// languages transcription and retrieval commonly report.
var wordForms = func() map[string]string {
	codes := []string{
		"en", "es", "fr", "de", "it", "pt", "ja", "ko", "zh", "ru", "ar",
		"hi", "bn", "te", "ta", "mr", "gu", "kn", "ml", "pa", "ur",
		"nl", "pl", "sv", "da", "no", "fi", "tr", "id",
	}
	namer := display.English.Languages()
	out := make(map[string]string, len(codes))
	for _, code := range codes {
		if name := namer.Name(language.Make(code)); name != "" {
			out[strings.ToLower(name)] = code
		}
	}
	return out
}()

// ToISO2 converts any recognized language code or English word to ISO 639-1.
// Languages without a two-letter code return their three-letter code.
// Unknown two-letter input passes through; anything else returns "".
func ToISO2(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return ""
	}
	if mapped, ok := wordForms[code]; ok {
		return mapped
	}
	if mapped, ok := bibliographic[code]; ok {
		return mapped
	}
	if tag, err := language.Parse(code); err == nil {
		if base, conf := tag.Base(); conf != language.No && base.String() != "und" {
			return base.String()
		}
	}
	if len(code) == 2 && isASCIIAlpha(code) {
		return code
	}
	return ""
}

// Tag returns the x/text tag for code, or language.Und when unrecognized.
func Tag(code string) language.Tag {
	iso := ToISO2(code)
	if iso == "" {
		return language.Und
	}
	tag, err := language.Parse(iso)
	if err != nil {
		return language.Und
	}
	return tag
}

// DisplayName returns a human-readable English language name.
// Returns "Unknown" for empty input, or the uppercased code for unrecognized input.
func DisplayName(code string) string {
	if strings.TrimSpace(code) == "" {
		return "Unknown"
	}
	if tag := Tag(code); tag != language.Und {
		if name := display.English.Languages().Name(tag); name != "" {
			return name
		}
	}
	return strings.ToUpper(strings.TrimSpace(code))
}

// ExtractFromTags extracts the language from container stream metadata tags.
func ExtractFromTags(tags map[string]string) string {
	for _, key := range []string{"language", "LANGUAGE", "Language", "language_ietf", "lang", "LANG"} {
		if value, ok := tags[key]; ok {
			value = strings.TrimSpace(strings.ReplaceAll(value, "\u0000", ""))
			if value != "" {
				return ToISO2(value)
			}
		}
	}
	return ""
}

// NormalizeList deduplicates and normalizes a list of language codes to ISO 639-1.
// Unrecognized entries are dropped.
func NormalizeList(languages []string) []string {
	if len(languages) == 0 {
		return nil
	}
	normalized := make([]string, 0, len(languages))
	seen := make(map[string]struct{}, len(languages))
	for _, lang := range languages {
		code := ToISO2(lang)
		if code == "" {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		normalized = append(normalized, code)
	}
	return normalized
}

func isASCIIAlpha(s string) bool {
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
