package parser

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"CampusNotify/internal/domain"
	"CampusNotify/internal/ports"
)

const dateLayout = "2006.01.02"

var (
	dateExpr     = regexp.MustCompile(`\d{4}\.\d{2}\.\d{2}`)
	audienceExpr = regexp.MustCompile(`news_z_(all|firstyear|secondyear)\.gif`)
)

// BulletinScanner scrapes the announcement bulletin page. Each <dl> block
// pairs <dt> rows (date plus audience icon) with <dd> rows (linked title);
// rows without a recognizable date are decoration and are skipped.
type BulletinScanner struct {
	pageURL  string
	baseURL  string
	selector string
	location *time.Location
	client   *http.Client
}

var _ ports.AnnouncementSource = (*BulletinScanner)(nil)

// NewBulletinScanner wires the page address and an HTTP client; a nil client
// gets a sane timeout default. Relative announcement links are absolutized
// against baseURL.
func NewBulletinScanner(pageURL, baseURL, selector string, loc *time.Location, client *http.Client) *BulletinScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if selector == "" {
		selector = "#newslist2 dl"
	}
	if loc == nil {
		loc = time.UTC
	}
	return &BulletinScanner{
		pageURL:  pageURL,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		selector: selector,
		location: loc,
		client:   client,
	}
}

// FetchListing downloads and parses the current bulletin listing.
func (s *BulletinScanner) FetchListing(ctx context.Context, _ time.Time) ([]domain.Announcement, error) {
	doc, err := s.fetchDocument(ctx)
	if err != nil {
		return nil, err
	}

	var (
		listing  []domain.Announcement
		parseErr error
	)

	doc.Find(s.selector).EachWithBreak(func(_ int, dl *goquery.Selection) bool {
		dts := dl.Find("dt")
		dds := dl.Find("dd")
		if dts.Length() != dds.Length() {
			parseErr = fmt.Errorf("bulletin list malformed: %d date rows but %d title rows", dts.Length(), dds.Length())
			return false
		}

		for i := 0; i < dts.Length(); i++ {
			item, ok := s.parseRow(dts.Eq(i), dds.Eq(i))
			if !ok {
				continue
			}
			listing = append(listing, item)
		}
		return true
	})

	if parseErr != nil {
		return nil, parseErr
	}
	return listing, nil
}

func (s *BulletinScanner) fetchDocument(ctx context.Context) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "CampusNotify/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request bulletin page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bulletin page returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse bulletin page: %w", err)
	}

	return doc, nil
}

func (s *BulletinScanner) parseRow(dt, dd *goquery.Selection) (domain.Announcement, bool) {
	match := dateExpr.FindString(strings.TrimSpace(dt.Text()))
	if match == "" {
		return domain.Announcement{}, false
	}
	publishedAt, err := time.ParseInLocation(dateLayout, match, s.location)
	if err != nil {
		return domain.Announcement{}, false
	}

	anchor := dd.Find("a").First()
	link, _ := anchor.Attr("href")
	if strings.HasPrefix(link, "/") {
		link = s.baseURL + link
	}

	return domain.Announcement{
		Title:       strings.TrimSpace(anchor.Text()),
		Link:        link,
		Audience:    parseAudienceIcon(dt),
		PublishedAt: publishedAt,
	}, true
}

// parseAudienceIcon reads the audience class off the second icon in the date
// row; rows without a classification icon address everyone.
func parseAudienceIcon(dt *goquery.Selection) domain.Audience {
	imgs := dt.Find("img")
	if imgs.Length() != 2 {
		return domain.AudienceAll
	}

	src, ok := imgs.Eq(1).Attr("src")
	if !ok {
		return domain.AudienceAll
	}

	match := audienceExpr.FindStringSubmatch(src)
	if match == nil {
		return domain.AudienceAll
	}
	switch match[1] {
	case "firstyear":
		return domain.AudienceFirstYear
	case "secondyear":
		return domain.AudienceSecondYear
	default:
		return domain.AudienceAll
	}
}
