package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const blockedHTML = `<html><body>
<h1>Request Access</h1>
<p>Due to aggressive automated scraping, programmatic access to these sites is limited.</p>
<a href="https://www.govinfo.gov/content/pkg/FR-2022-03-14/pdf/2022-05471.pdf">Official PDF</a>
</body></html>`

func TestIsBlockedHTML(t *testing.T) {
	assert.True(t, isBlockedHTML([]byte(blockedHTML)))
	assert.True(t, isBlockedHTML([]byte("please REQUEST ACCESS to continue")))
	assert.False(t, isBlockedHTML([]byte(articleHTML)))
	assert.False(t, isBlockedHTML(nil))
}

func TestGovinfoPDFURL(t *testing.T) {
	assert.Equal(t,
		"https://www.govinfo.gov/content/pkg/FR-2022-03-14/pdf/2022-05471.pdf",
		govinfoPDFURL([]byte(blockedHTML)))

	// Bare text match without an anchor.
	loose := `see https://www.govinfo.gov/link/plaw/117/public/328.pdf for details`
	assert.Equal(t, "https://www.govinfo.gov/link/plaw/117/public/328.pdf", govinfoPDFURL([]byte(loose)))

	assert.Empty(t, govinfoPDFURL([]byte("<html><body>no pdf here</body></html>")))
}

func TestExtractText_Article(t *testing.T) {
	text, err := extractText([]byte(articleHTML), "https://example.com/eo")
	require.NoError(t, err)
	assert.Contains(t, text, "EO 14067")
	assert.NotContains(t, text, "<p>")
}

func TestExtractText_FallbackStripsScripts(t *testing.T) {
	html := `<html><body><script>var x = "hidden";</script><div>visible text</div></body></html>`
	text, err := extractText([]byte(html), "")
	require.NoError(t, err)
	assert.Contains(t, text, "visible text")
	assert.NotContains(t, text, "hidden")
}

func TestExtractText_NoContent(t *testing.T) {
	_, err := extractText([]byte("<html><body><script>x()</script></body></html>"), "")
	assert.Error(t, err)
}

func TestCollapseWhitespace(t *testing.T) {
	in := "  line   one  \n\n\n   \n line two\t\tend  "
	assert.Equal(t, "line one\nline two end", collapseWhitespace(in))
}

func TestHashName(t *testing.T) {
	a := hashName("https://example.com/a", nil)
	b := hashName("https://example.com/b", nil)

	assert.Len(t, a, 16)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, hashName("https://example.com/a", nil), "stable across calls")
	assert.NotEqual(t, a, hashName("https://example.com/a", []byte("x")), "content changes the hash")
}

func TestAddURL_BlockedFederalRegisterPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Strip the govinfo link so the fallback has nothing to chase;
		// the blocker handling itself is what's under test here.
		blocked := strings.ReplaceAll(blockedHTML, "https://www.govinfo.gov", "https://elsewhere.invalid")
		_, _ = w.Write([]byte(blocked))
	}))
	defer srv.Close()

	up := &mockUploader{}
	ing := newTestIngestor(t, up)

	// Blocker detection keys off the federalregister.gov host appearing
	// in the requested URL.
	_, err := ing.AddURL(context.Background(), srv.URL+"/?site=federalregister.gov")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBlockedPage)
	assert.Zero(t, up.count(), "blocked page content must not be indexed")
}
