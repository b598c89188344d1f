package collector

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/amishk599/agregador/internal/normalize"
)

var fallbackDateLayouts = []string{
	time.RFC3339,
	time.DateOnly,
	"02/01/2006",
	"02-01-2006",
	"02.01.2006",
	time.RFC1123Z,
	time.RFC1123,
}

// "há 3 dias", "ha 2 semanas", "publicado há 5 horas" (after folding).
var relativeDateRegex = regexp.MustCompile(`\bha\s+(\d+)\s+(minuto|hora|dia|semana|mes)`)

// parseDate reads a listing date. layout, when set, is tried first; then the
// Portuguese relative forms; then a few common absolute layouts.
// It returns nil for empty or unrecognized text.
func parseDate(text, layout string, now time.Time) *time.Time {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if layout != "" {
		if t, err := time.ParseInLocation(layout, text, now.Location()); err == nil {
			return &t
		}
	}
	if t, ok := parseRelativeDate(text, now); ok {
		return &t
	}
	for _, l := range fallbackDateLayouts {
		if t, err := time.ParseInLocation(l, text, now.Location()); err == nil {
			return &t
		}
	}
	return nil
}

func parseRelativeDate(text string, now time.Time) (time.Time, bool) {
	folded := normalize.Fold(text)
	switch {
	case strings.Contains(folded, "hoje"), strings.Contains(folded, "agora"):
		return now, true
	case strings.Contains(folded, "anteontem"):
		return now.AddDate(0, 0, -2), true
	case strings.Contains(folded, "ontem"):
		return now.AddDate(0, 0, -1), true
	}

	m := relativeDateRegex.FindStringSubmatch(folded)
	if m == nil {
		return time.Time{}, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return time.Time{}, false
	}
	switch m[2] {
	case "minuto":
		return now.Add(-time.Duration(n) * time.Minute), true
	case "hora":
		return now.Add(-time.Duration(n) * time.Hour), true
	case "dia":
		return now.AddDate(0, 0, -n), true
	case "semana":
		return now.AddDate(0, 0, -7*n), true
	default:
		return now.AddDate(0, -n, 0), true
	}
}
