package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// userAgent is a real browser User-Agent; government sites block the Go
// default outright.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/122.0 Safari/537.36"

// maxFetchSize caps one page download.
const maxFetchSize = 10 << 20 // 10 MB

// blockMarkers identify FederalRegister's anti-scraping interstitial.
var blockMarkers = []string{
	"request access",
	"programmatic access to these sites is limited",
	"aggressive automated scraping",
}

// govinfoPDFPattern finds the official govinfo.gov PDF link embedded in a
// FederalRegister page.
var govinfoPDFPattern = regexp.MustCompile(`(?i)https?://www\.govinfo\.gov/(?:content/pkg/)?[^"'\s]+?\.pdf`)

// ErrBlockedPage indicates the site returned its anti-scraping
// interstitial instead of content.
var ErrBlockedPage = errors.New("page blocked by anti-scraping interstitial")

// fetcher performs single best-effort page fetches.
type fetcher struct {
	client *http.Client
}

// page is one fetched document.
type page struct {
	URL         string
	ContentType string
	Body        []byte
}

// fetch downloads rawURL. Any network or HTTP failure is returned to the
// caller; nothing is retried.
func (f *fetcher) fetch(ctx context.Context, rawURL string) (*page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request for %s: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchSize))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rawURL, err)
	}

	return &page{
		URL:         rawURL,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// isBlockedHTML reports whether the page is the blocker interstitial.
// Only the leading portion is scanned; the markers appear early.
func isBlockedHTML(body []byte) bool {
	snippet := strings.ToLower(string(body[:min(len(body), 20000)]))
	for _, marker := range blockMarkers {
		if strings.Contains(snippet, marker) {
			return true
		}
	}
	return false
}

// govinfoPDFURL extracts the embedded govinfo.gov PDF link, preferring an
// href attribute over a bare text match.
func govinfoPDFURL(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err == nil {
		var found string
		doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			href, _ := sel.Attr("href")
			if govinfoPDFPattern.MatchString(href) {
				found = govinfoPDFPattern.FindString(href)
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}
	return govinfoPDFPattern.FindString(string(body))
}

// extractText pulls readable text out of an HTML page. Readability handles
// article-shaped pages; anything it rejects falls back to a plain goquery
// text dump with scripts and styles stripped.
func extractText(body []byte, pageURL string) (string, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		parsed = nil
	}

	article, err := readability.FromReader(strings.NewReader(string(body)), parsed)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		return strings.TrimSpace(article.TextContent), nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return "", fmt.Errorf("parse html from %s: %w", pageURL, err)
	}
	doc.Find("script, style, noscript").Remove()
	text := strings.TrimSpace(doc.Find("body").Text())
	if text == "" {
		text = strings.TrimSpace(doc.Text())
	}
	if text == "" {
		return "", fmt.Errorf("no extractable text at %s", pageURL)
	}
	return collapseWhitespace(text), nil
}

// collapseWhitespace squeezes runs of blank lines and spaces left behind by
// the goquery text dump.
func collapseWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
