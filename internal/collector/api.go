package collector

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/amishk599/agregador/internal/model"
)

// apiConfig maps a JSON API onto RawListing. Fields holds gjson paths relative
// to each item, keyed by the listing field name.
type apiConfig struct {
	APIKey     string            `json:"api_key"`
	ItemsPath  string            `json:"items_path"`
	Fields     map[string]string `json:"campos"`
	DateLayout string            `json:"formato_data"`
	Currency   string            `json:"moeda"`
}

// APICollector reads job listings from an authenticated JSON endpoint.
type APICollector struct {
	client    *http.Client
	userAgent string
	now       func() time.Time
}

func NewAPICollector(client *http.Client, userAgent string) *APICollector {
	return &APICollector{client: client, userAgent: userAgent, now: time.Now}
}

func (c *APICollector) Collect(ctx context.Context, src model.Source) ([]model.RawListing, error) {
	var cfg apiConfig
	if err := decodeConfig(src, &cfg); err != nil {
		return nil, err
	}
	if cfg.Fields["titulo"] == "" {
		return nil, configError(src, "api source needs campos.titulo")
	}

	header := userAgentHeader(c.userAgent)
	header.Set("Accept", "application/json")
	if cfg.APIKey != "" {
		header.Set("Authorization", "Bearer "+cfg.APIKey)
	}

	body, err := fetch(ctx, c.client, src.URL, header)
	if err != nil {
		return nil, collectionError(src, fmt.Errorf("api fetch: %w", err))
	}
	if !gjson.ValidBytes(body) {
		return nil, collectionError(src, fmt.Errorf("api parse: response is not valid JSON"))
	}

	items := gjson.ParseBytes(body)
	if cfg.ItemsPath != "" {
		items = items.Get(cfg.ItemsPath)
	}
	if !items.IsArray() {
		return nil, collectionError(src, fmt.Errorf("api parse: %q is not an array", cfg.ItemsPath))
	}

	now := c.now()
	var listings []model.RawListing
	items.ForEach(func(_, item gjson.Result) bool {
		l := c.mapItem(item, cfg, now)
		if l.Title != "" {
			listings = append(listings, l)
		}
		return true
	})
	return listings, nil
}

func (c *APICollector) mapItem(item gjson.Result, cfg apiConfig, now time.Time) model.RawListing {
	str := func(field string) string {
		path := cfg.Fields[field]
		if path == "" {
			return ""
		}
		return strings.TrimSpace(item.Get(path).String())
	}
	num := func(field string) *float64 {
		path := cfg.Fields[field]
		if path == "" {
			return nil
		}
		v := item.Get(path)
		if !v.Exists() || v.Type == gjson.Null {
			return nil
		}
		f := v.Float()
		return &f
	}

	l := model.RawListing{
		Title:        str("titulo"),
		Company:      str("empresa"),
		Location:     str("localidade"),
		Description:  extractText(str("descricao")),
		ContractType: str("tipo_contrato"),
		SalaryMin:    num("salario_min"),
		SalaryMax:    num("salario_max"),
		Currency:     str("moeda"),
		SourceURL:    str("url_origem"),
		ContactEmail: str("email_contacto"),
		PublishedAt:  parseDate(str("publicada_em"), cfg.DateLayout, now),
		ExpiresAt:    parseDate(str("data_expiracao"), cfg.DateLayout, now),
	}
	if l.Currency == "" {
		l.Currency = cfg.Currency
	}

	if path := cfg.Fields["requisitos"]; path != "" {
		v := item.Get(path)
		if v.IsArray() {
			for _, r := range v.Array() {
				if s := strings.TrimSpace(r.String()); s != "" {
					l.Requirements = append(l.Requirements, s)
				}
			}
		} else if s := strings.TrimSpace(v.String()); s != "" {
			l.Requirements = []string{s}
		}
	}
	return l
}
