package collector

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/amishk599/agregador/internal/model"
)

const rssFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Vagas Angola</title>
  <item>
    <title>Contabilista Sénior</title>
    <link>https://vagas.example.ao/1</link>
    <description>&lt;p&gt;Gestão de &lt;b&gt;contas&lt;/b&gt;&lt;/p&gt;</description>
    <author>rh@abc.ao (ABC Lda)</author>
    <category>Luanda</category>
    <pubDate>Mon, 04 Mar 2024 09:00:00 +0100</pubDate>
  </item>
  <item>
    <title>   </title>
    <link>https://vagas.example.ao/2</link>
  </item>
  <item>
    <title>Motorista</title>
    <link>https://vagas.example.ao/3</link>
    <category>Benguela</category>
  </item>
</channel>
</rss>`

func TestRSSCollect_Success(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(rssFeed))
	}))
	defer srv.Close()

	c := NewRSSCollector(srv.Client(), "agregador-test")
	src := model.Source{ID: "rss-1", Type: model.SourceRSS, URL: srv.URL,
		Config: json.RawMessage(`{"empresa":"Portal Emprego"}`)}

	listings, err := c.Collect(context.Background(), src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotUA != "agregador-test" {
		t.Errorf("User-Agent = %q", gotUA)
	}
	if len(listings) != 2 {
		t.Fatalf("expected 2 listings (blank title skipped), got %d", len(listings))
	}

	l := listings[0]
	if l.Title != "Contabilista Sénior" {
		t.Errorf("title = %q", l.Title)
	}
	if l.Company != "Portal Emprego" {
		t.Errorf("company should come from config, got %q", l.Company)
	}
	if l.Location != "Luanda" {
		t.Errorf("location should come from first category, got %q", l.Location)
	}
	if l.Description != "Gestão de contas" {
		t.Errorf("description = %q", l.Description)
	}
	if l.SourceURL != "https://vagas.example.ao/1" {
		t.Errorf("url = %q", l.SourceURL)
	}
	if l.PublishedAt == nil || l.PublishedAt.UTC().Hour() != 8 {
		t.Errorf("published = %v", l.PublishedAt)
	}
	if listings[1].PublishedAt != nil {
		t.Errorf("undated item should have nil PublishedAt, got %v", listings[1].PublishedAt)
	}
}

func TestRSSCollect_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewRSSCollector(srv.Client(), "")
	_, err := c.Collect(context.Background(), model.Source{ID: "rss-1", URL: srv.URL})

	var collErr *model.CollectionError
	if !errors.As(err, &collErr) || collErr.SourceID != "rss-1" {
		t.Fatalf("expected CollectionError for rss-1, got %v", err)
	}
	var httpErr *model.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected wrapped HTTPError, got %v", err)
	}
	if httpErr.StatusCode != 429 || httpErr.RetryAfter.Seconds() != 30 {
		t.Errorf("unexpected HTTPError: %+v", httpErr)
	}
}

func TestRSSCollect_MalformedFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("this is not a feed"))
	}))
	defer srv.Close()

	c := NewRSSCollector(srv.Client(), "")
	_, err := c.Collect(context.Background(), model.Source{ID: "rss-1", URL: srv.URL})

	var collErr *model.CollectionError
	if !errors.As(err, &collErr) {
		t.Fatalf("expected CollectionError, got %v", err)
	}
}

func TestRSSCollect_BadConfig(t *testing.T) {
	c := NewRSSCollector(http.DefaultClient, "")
	_, err := c.Collect(context.Background(), model.Source{ID: "rss-1", URL: "http://unused",
		Config: json.RawMessage(`{"empresa": 42}`)})

	if !errors.Is(err, model.ErrInvalidSourceConfig) {
		t.Fatalf("expected ErrInvalidSourceConfig, got %v", err)
	}
}
