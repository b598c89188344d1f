package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// SourceType selects the collector strategy used for a source.
type SourceType string

const (
	SourceRSS     SourceType = "rss"
	SourceAPI     SourceType = "api"
	SourceScraper SourceType = "scraper"
)

// ParseSourceType validates a free-text source type.
func ParseSourceType(s string) (SourceType, error) {
	switch t := SourceType(s); t {
	case SourceRSS, SourceAPI, SourceScraper:
		return t, nil
	default:
		return "", fmt.Errorf("unknown source type %q (want rss, api or scraper)", s)
	}
}

// Source is a configured origin of job listings (fontes_vagas).
type Source struct {
	ID              string
	Name            string
	Type            SourceType
	URL             string
	PollingInterval time.Duration
	LastCollectedAt *time.Time
	NextDueAt       *time.Time
	Active          bool
	Config          json.RawMessage // strategy-specific, decoded by the collector
}

// IsDue reports whether the source should be collected at now.
func (s Source) IsDue(now time.Time) bool {
	if !s.Active {
		return false
	}
	return s.NextDueAt == nil || !s.NextDueAt.After(now)
}
