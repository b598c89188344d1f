package collector

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/amishk599/agregador/internal/model"
)

// rssConfig is the RSS source config. Company and location default to the
// feed item's author and first category when unset.
type rssConfig struct {
	Company      string `json:"empresa"`
	Location     string `json:"localidade"`
	ContractType string `json:"tipo_contrato"`
	Currency     string `json:"moeda"`
}

// RSSCollector reads RSS and Atom feeds using the standard item fields only.
type RSSCollector struct {
	client    *http.Client
	userAgent string
}

func NewRSSCollector(client *http.Client, userAgent string) *RSSCollector {
	return &RSSCollector{client: client, userAgent: userAgent}
}

func (c *RSSCollector) Collect(ctx context.Context, src model.Source) ([]model.RawListing, error) {
	var cfg rssConfig
	if err := decodeConfig(src, &cfg); err != nil {
		return nil, err
	}

	body, err := fetch(ctx, c.client, src.URL, userAgentHeader(c.userAgent))
	if err != nil {
		return nil, collectionError(src, fmt.Errorf("rss fetch: %w", err))
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, collectionError(src, fmt.Errorf("rss parse: %w", err))
	}

	listings := make([]model.RawListing, 0, len(feed.Items))
	for _, item := range feed.Items {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}

		l := model.RawListing{
			Title:        title,
			Company:      cfg.Company,
			Location:     cfg.Location,
			ContractType: cfg.ContractType,
			Currency:     cfg.Currency,
			SourceURL:    item.Link,
		}

		desc := item.Content
		if desc == "" {
			desc = item.Description
		}
		l.Description = extractText(desc)

		if l.Company == "" && len(item.Authors) > 0 && item.Authors[0] != nil {
			l.Company = strings.TrimSpace(item.Authors[0].Name)
		}
		if l.Location == "" && len(item.Categories) > 0 {
			l.Location = strings.TrimSpace(item.Categories[0])
		}

		switch {
		case item.PublishedParsed != nil:
			l.PublishedAt = item.PublishedParsed
		case item.UpdatedParsed != nil:
			l.PublishedAt = item.UpdatedParsed
		}

		listings = append(listings, l)
	}
	return listings, nil
}
