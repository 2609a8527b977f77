package cineman

import (
	"strings"
	"time"
)

const (
	// marks anchor text as an age rating, ex. "Y.12 (14)"
	ageRatingMarker = "Y."
	// the last anchor of a listing is sometimes the reservation button instead of the age rating
	reservationText = "Reservation"
	// AgeUnknown is the age limit of listings without an age rating
	AgeUnknown = "unknown"
)

// language codes that appear without a slash
var singleLanguageCodes = map[string]struct{}{
	"G": {},
	"F": {},
	"O": {},
	"I": {},
	"E": {},
}

// IsShowtime reports whether token is a time of day like "20:30".
// Hour and minute may have one or two digits, "9:5" is 09:05.
func IsShowtime(token string) bool {
	_, err := time.Parse("15:4", token)
	return err == nil
}

// IsLanguage reports whether token is a language code like "D/f" or "E".
func IsLanguage(token string) bool {
	if strings.Contains(token, "/") && !strings.Contains(token, ageRatingMarker) {
		return true
	}
	_, ok := singleLanguageCodes[token]
	return ok
}

// ClassifyAgeLimit picks the age rating out of the texts of a listing's link anchors.
func ClassifyAgeLimit(anchors []string) string {
	if len(anchors) == 0 {
		return AgeUnknown
	}
	text := anchors[len(anchors)-1]
	if text == reservationText {
		if len(anchors) < 2 {
			return AgeUnknown
		}
		text = anchors[len(anchors)-2]
	}
	if !strings.Contains(text, ageRatingMarker) {
		return AgeUnknown
	}
	return text
}

// cleanToken strips markup remnants and punctuation the showtime list wraps tokens in.
func cleanToken(token string) string {
	token = strings.Trim(token, "<>/–)")
	token = strings.ReplaceAll(token, "\t", "")
	return strings.TrimSpace(token)
}

// classifyTokens splits text into showtimes and languages, tokens matching neither are dropped.
func classifyTokens(text string) (showtimes, languages []string) {
	for _, field := range strings.Fields(text) {
		token := cleanToken(field)
		if token == "" {
			continue
		}
		if IsShowtime(token) {
			showtimes = append(showtimes, token)
			continue
		}
		if IsLanguage(token) {
			languages = append(languages, token)
		}
	}
	return showtimes, languages
}
