package parser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"CampusNotify/internal/domain"
)

const bulletinPage = `
<html><body>
<div id="newslist2">
  <dl>
    <dt>2025.04.01 <img src="/img/icon_new.gif"><img src="/img/news_z_firstyear.gif"></dt>
    <dd><a href="/zenki/news/first.html">Orientation for first years</a></dd>
    <dt>2025.04.01 <img src="/img/icon_new.gif"><img src="/img/news_z_secondyear.gif"></dt>
    <dd><a href="/zenki/news/second.html">Lab placement guidance</a></dd>
    <dt>2025.04.01 <img src="/img/icon_new.gif"><img src="/img/news_z_all.gif"></dt>
    <dd><a href="https://example.ac.jp/external.html">Campus closure notice</a></dd>
    <dt>2025.03.31</dt>
    <dd><a href="/zenki/news/plain.html">Spring schedule</a></dd>
  </dl>
</div>
</body></html>`

func serveBulletin(t *testing.T, page string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(page))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestFetchListing(t *testing.T) {
	t.Parallel()

	server := serveBulletin(t, bulletinPage)
	scanner := NewBulletinScanner(server.URL, "https://example.ac.jp", "#newslist2 dl", time.UTC, server.Client())

	listing, err := scanner.FetchListing(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("FetchListing returned error: %v", err)
	}
	if len(listing) != 4 {
		t.Fatalf("expected 4 announcements, got %d: %+v", len(listing), listing)
	}

	first := listing[0]
	if first.Title != "Orientation for first years" {
		t.Fatalf("unexpected title: %q", first.Title)
	}
	if first.Link != "https://example.ac.jp/zenki/news/first.html" {
		t.Fatalf("relative link not absolutized: %q", first.Link)
	}
	if first.Audience != domain.AudienceFirstYear {
		t.Fatalf("unexpected audience: %v", first.Audience)
	}
	if !first.PublishedAt.Equal(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected publication date: %v", first.PublishedAt)
	}

	if listing[1].Audience != domain.AudienceSecondYear {
		t.Fatalf("unexpected audience for second item: %v", listing[1].Audience)
	}

	if listing[2].Link != "https://example.ac.jp/external.html" {
		t.Fatalf("absolute link should be kept as-is: %q", listing[2].Link)
	}
	if listing[2].Audience != domain.AudienceAll {
		t.Fatalf("unexpected audience for third item: %v", listing[2].Audience)
	}

	// A date row without a classification icon addresses everyone.
	if listing[3].Audience != domain.AudienceAll {
		t.Fatalf("row without icon should default to all, got %v", listing[3].Audience)
	}
}

func TestFetchListingRowCountMismatch(t *testing.T) {
	t.Parallel()

	page := `
<div id="newslist2">
  <dl>
    <dt>2025.04.01</dt>
    <dt>2025.04.02</dt>
    <dd><a href="/one.html">Lonely title</a></dd>
  </dl>
</div>`

	server := serveBulletin(t, page)
	scanner := NewBulletinScanner(server.URL, "https://example.ac.jp", "", time.UTC, server.Client())

	if _, err := scanner.FetchListing(context.Background(), time.Now()); err == nil {
		t.Fatal("mismatched dt/dd counts should fail the parse")
	} else if !strings.Contains(err.Error(), "malformed") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFetchListingSkipsUndatedRows(t *testing.T) {
	t.Parallel()

	page := `
<div id="newslist2">
  <dl>
    <dt>undated heading</dt>
    <dd><a href="/x.html">Not an announcement</a></dd>
  </dl>
</div>`

	server := serveBulletin(t, page)
	scanner := NewBulletinScanner(server.URL, "https://example.ac.jp", "", time.UTC, server.Client())

	listing, err := scanner.FetchListing(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("FetchListing returned error: %v", err)
	}
	if len(listing) != 0 {
		t.Fatalf("undated rows should be skipped, got %+v", listing)
	}
}

func TestFetchListingServerError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	scanner := NewBulletinScanner(server.URL, "https://example.ac.jp", "", time.UTC, server.Client())
	if _, err := scanner.FetchListing(context.Background(), time.Now()); err == nil {
		t.Fatal("expected an error for a failing page")
	}
}
