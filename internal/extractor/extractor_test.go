package extractor

import (
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func mustParse(t *testing.T, rawURL string) *url.URL {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	return u
}

func TestExtractLinks(t *testing.T) {
	html := `<html><body>
		<a href="/about">About</a>
		<a href="https://example.com/contact#team">Contact</a>
		<a href="/about">Duplicate</a>
		<a href="javascript:alert(1)">Nope</a>
		<a href="mailto:a@example.com">Mail</a>
	</body></html>`

	base := mustParse(t, "https://example.com/")
	links := ExtractLinks(parseDoc(t, html), base)

	assert.Equal(t, []string{
		"https://example.com/about",
		"https://example.com/contact",
	}, links)
}

func TestExtractForms(t *testing.T) {
	html := `<html><body>
		<form action="/search" method="POST">
			<input type="text" name="q" value="initial">
			<input type="hidden" name="token" value="abc">
			<input type="submit" value="Go">
			<textarea name="notes"></textarea>
			<select name="category"><option value="books">Books</option></select>
		</form>
		<form>
			<input name="bare">
		</form>
	</body></html>`

	base := mustParse(t, "https://example.com/page")
	forms := ExtractForms(parseDoc(t, html), "https://example.com/page", base)
	require.Len(t, forms, 2)

	first := forms[0]
	assert.Equal(t, "https://example.com/search", first.Action)
	assert.Equal(t, "post", first.Method)
	require.Len(t, first.Inputs, 5)
	assert.Equal(t, "q", first.Inputs[0].Name)
	assert.Equal(t, "text", first.Inputs[0].Type)
	assert.Equal(t, "textarea", first.Inputs[3].Type)
	assert.Equal(t, "select", first.Inputs[4].Type)
	assert.Equal(t, "books", first.Inputs[4].Value)

	second := forms[1]
	assert.Equal(t, "https://example.com/page", second.Action)
	assert.Equal(t, "get", second.Method)
	assert.Equal(t, "text", second.Inputs[0].Type)
}

func TestExtractScripts(t *testing.T) {
	html := `<html><head>
		<script src="/js/app.js"></script>
		<script src="https://cdn.example.net/lib.js" integrity="sha384-abc"></script>
		<script src="//cdn.example.net/other.js"></script>
		<script>inline()</script>
	</head></html>`

	base := mustParse(t, "https://example.com/")
	scripts := ExtractScripts(parseDoc(t, html), base)
	require.Len(t, scripts, 3)

	assert.Equal(t, "https://example.com/js/app.js", scripts[0].URL)
	assert.False(t, scripts[0].External)
	assert.Empty(t, scripts[0].Integrity)

	assert.Equal(t, "https://cdn.example.net/lib.js", scripts[1].URL)
	assert.True(t, scripts[1].External)
	assert.Equal(t, "sha384-abc", scripts[1].Integrity)

	assert.Equal(t, "https://cdn.example.net/other.js", scripts[2].URL)
	assert.True(t, scripts[2].External)
}

func TestExtractStylesheets(t *testing.T) {
	html := `<html><head>
		<link rel="stylesheet" href="/css/site.css">
		<link rel="icon" href="/favicon.ico">
		<link rel="stylesheet" href="https://cdn.example.net/bootstrap-4.0.min.css">
	</head></html>`

	base := mustParse(t, "https://example.com/")
	sheets := ExtractStylesheets(parseDoc(t, html), base)

	assert.Equal(t, []string{
		"https://example.com/css/site.css",
		"https://cdn.example.net/bootstrap-4.0.min.css",
	}, sheets)
}

func TestNilDocument(t *testing.T) {
	assert.Nil(t, ExtractLinks(nil, nil))
	assert.Nil(t, ExtractForms(nil, "", nil))
	assert.Nil(t, ExtractScripts(nil, nil))
	assert.Nil(t, ExtractStylesheets(nil, nil))
}
