package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/amishk599/agregador/internal/model"
)

const defaultRecencyDays = 7

// scraperSelectors are CSS selectors evaluated inside each item element,
// except the detail_* ones which run against the listing's own page.
type scraperSelectors struct {
	Item              string `json:"item"`
	Title             string `json:"titulo"`
	Company           string `json:"empresa"`
	Location          string `json:"localidade"`
	Date              string `json:"data"`
	Link              string `json:"link"`
	ContractType      string `json:"tipo"`
	Description       string `json:"descricao"`
	DetailDescription string `json:"detalhe_descricao"`
	DetailEmail       string `json:"detalhe_email"`
}

type scraperConfig struct {
	Selectors  scraperSelectors `json:"seletores"`
	DateLayout string           `json:"formato_data"`
	WindowDays int              `json:"janela_dias"`
	Company    string           `json:"empresa"`
	Currency   string           `json:"moeda"`
}

// HostLimiter spaces requests to one host. *ratelimit.HostRateLimiter
// satisfies it.
type HostLimiter interface {
	Wait(ctx context.Context, host string) error
}

// ScraperOption configures a ScraperCollector.
type ScraperOption func(*ScraperCollector)

// WithScraperLogger sets the logger used for detail page failures.
func WithScraperLogger(logger *slog.Logger) ScraperOption {
	return func(c *ScraperCollector) { c.logger = logger }
}

// WithScraperLimiter makes detail page requests wait on limiter. The index
// page is expected to be limited by the caller.
func WithScraperLimiter(limiter HostLimiter) ScraperOption {
	return func(c *ScraperCollector) { c.limiter = limiter }
}

// WithScraperClock overrides the clock used for relative dates and the
// recency window.
func WithScraperClock(now func() time.Time) ScraperOption {
	return func(c *ScraperCollector) { c.now = now }
}

// ScraperCollector extracts listings from HTML pages with CSS selectors.
type ScraperCollector struct {
	client    *http.Client
	userAgent string
	logger    *slog.Logger
	limiter   HostLimiter
	now       func() time.Time
}

func NewScraperCollector(client *http.Client, userAgent string, opts ...ScraperOption) *ScraperCollector {
	c := &ScraperCollector{
		client:    client,
		userAgent: userAgent,
		logger:    slog.New(slog.DiscardHandler),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *ScraperCollector) Collect(ctx context.Context, src model.Source) ([]model.RawListing, error) {
	var cfg scraperConfig
	if err := decodeConfig(src, &cfg); err != nil {
		return nil, err
	}
	sel := cfg.Selectors
	if sel.Item == "" || sel.Title == "" {
		return nil, configError(src, "scraper source needs seletores.item and seletores.titulo")
	}
	if sel.Link == "" {
		sel.Link = "a"
	}
	window := cfg.WindowDays
	if window <= 0 {
		window = defaultRecencyDays
	}

	now := c.now()
	// Whole days, so a date-only value from the cutoff day is kept.
	y, m, d := now.AddDate(0, 0, -window).Date()
	cutoff := time.Date(y, m, d, 0, 0, 0, 0, now.Location())

	page := c.newColly(ctx)
	detail := page.Clone()

	var (
		listings []model.RawListing
		fetchErr error
		current  *model.RawListing
	)

	page.OnError(func(r *colly.Response, err error) {
		fetchErr = responseError(r, err)
	})

	if sel.DetailDescription != "" || sel.DetailEmail != "" {
		detail.OnHTML("html", func(e *colly.HTMLElement) {
			if current == nil {
				return
			}
			if sel.DetailDescription != "" && current.Description == "" {
				current.Description = extractText(e.ChildText(sel.DetailDescription))
			}
			if sel.DetailEmail != "" && current.ContactEmail == "" {
				current.ContactEmail = extractEmail(e, sel.DetailEmail)
			}
		})
	}

	page.OnHTML(sel.Item, func(e *colly.HTMLElement) {
		title := strings.TrimSpace(e.ChildText(sel.Title))
		if title == "" {
			return
		}

		l := model.RawListing{
			Title:    title,
			Company:  cfg.Company,
			Currency: cfg.Currency,
		}
		if sel.Company != "" {
			if v := strings.TrimSpace(e.ChildText(sel.Company)); v != "" {
				l.Company = v
			}
		}
		if sel.Location != "" {
			l.Location = strings.TrimSpace(e.ChildText(sel.Location))
		}
		if sel.ContractType != "" {
			l.ContractType = strings.TrimSpace(e.ChildText(sel.ContractType))
		}
		if sel.Description != "" {
			l.Description = extractText(e.ChildText(sel.Description))
		}
		if sel.Date != "" {
			raw := e.ChildAttr(sel.Date, "datetime")
			if raw == "" {
				raw = e.ChildText(sel.Date)
			}
			l.PublishedAt = parseDate(raw, cfg.DateLayout, now)
		}
		if l.PublishedAt != nil && l.PublishedAt.Before(cutoff) {
			return
		}

		href := e.ChildAttr(sel.Link, "href")
		if href == "" {
			href = e.Attr("href")
		}
		if href != "" {
			l.SourceURL = e.Request.AbsoluteURL(href)
		}

		if l.SourceURL != "" && (sel.DetailDescription != "" || sel.DetailEmail != "") {
			if err := c.waitHost(ctx, l.SourceURL); err != nil {
				c.logger.Warn("detail page skipped", "source", src.Name, "url", l.SourceURL, "error", err)
			} else {
				current = &l
				if err := detail.Visit(l.SourceURL); err != nil {
					c.logger.Warn("detail page failed", "source", src.Name, "url", l.SourceURL, "error", err)
				}
				current = nil
			}
		}

		listings = append(listings, l)
	})

	if err := page.Visit(src.URL); err != nil {
		if fetchErr == nil {
			fetchErr = err
		}
	}
	if fetchErr != nil {
		return nil, collectionError(src, fmt.Errorf("scraper fetch: %w", fetchErr))
	}
	if err := ctx.Err(); err != nil {
		return nil, collectionError(src, err)
	}
	return listings, nil
}

func (c *ScraperCollector) newColly(ctx context.Context) *colly.Collector {
	opts := []colly.CollectorOption{}
	if c.userAgent != "" {
		opts = append(opts, colly.UserAgent(c.userAgent))
	}
	col := colly.NewCollector(opts...)

	base := http.DefaultTransport
	if c.client != nil && c.client.Transport != nil {
		base = c.client.Transport
	}
	col.WithTransport(contextTransport{ctx: ctx, base: base})
	if c.client != nil && c.client.Timeout > 0 {
		col.SetRequestTimeout(c.client.Timeout)
	}
	return col
}

func (c *ScraperCollector) waitHost(ctx context.Context, rawURL string) error {
	if c.limiter == nil {
		return nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	return c.limiter.Wait(ctx, u.Hostname())
}

// contextTransport binds colly's requests to the caller's context.
type contextTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t contextTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.base.RoundTrip(req.WithContext(t.ctx))
}

// responseError maps colly's status failures onto *model.HTTPError so the
// retry decorator can classify them.
func responseError(r *colly.Response, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if r == nil || r.StatusCode < 400 {
		return err
	}
	var retryAfter time.Duration
	if r.Headers != nil {
		retryAfter = parseRetryAfter(r.Headers.Get("Retry-After"))
	}
	return &model.HTTPError{StatusCode: r.StatusCode, RetryAfter: retryAfter, Err: err}
}

// extractEmail prefers a mailto: link under sel, then the element text.
func extractEmail(e *colly.HTMLElement, sel string) string {
	if href := e.ChildAttr(sel, "href"); strings.HasPrefix(href, "mailto:") {
		addr := strings.TrimPrefix(href, "mailto:")
		if i := strings.IndexByte(addr, '?'); i >= 0 {
			addr = addr[:i]
		}
		return strings.TrimSpace(addr)
	}
	return strings.TrimSpace(e.ChildText(sel))
}
