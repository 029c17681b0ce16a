package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractScriptEndpoints(t *testing.T) {
	source := []byte(`
		fetch("/api/users");
		var xhr = new XMLHttpRequest();
		xhr.open("GET", "/api/orders?page=1");
		fetch("https://cdn.invalid/tracker.js");
	`)
	base := mustParse(t, "https://example.com/static/app.js")

	endpoints := ExtractScriptEndpoints(source, base)

	assert.Contains(t, endpoints, "https://example.com/api/users")
	assert.Contains(t, endpoints, "https://example.com/api/orders?page=1")
	assert.Contains(t, endpoints, "https://cdn.invalid/tracker.js")
}

func TestExtractScriptEndpointsDeduplicates(t *testing.T) {
	source := []byte(`fetch("/api/users"); fetch("/api/users");`)
	base := mustParse(t, "https://example.com/app.js")

	endpoints := ExtractScriptEndpoints(source, base)
	assert.Equal(t, []string{"https://example.com/api/users"}, endpoints)
}

func TestExtractScriptEndpointsEmptySource(t *testing.T) {
	base := mustParse(t, "https://example.com/app.js")
	assert.Nil(t, ExtractScriptEndpoints(nil, base))
	assert.Nil(t, ExtractScriptEndpoints([]byte("var x = 1;"), base))
}

func TestInlineScriptSource(t *testing.T) {
	doc := parseDoc(t, `<html><head>
		<script src="/app.js">ignored external body</script>
		<script>fetch("/api/inline");</script>
		<script>console.log("second");</script>
	</head></html>`)

	source := string(InlineScriptSource(doc))
	assert.Contains(t, source, `fetch("/api/inline");`)
	assert.Contains(t, source, `console.log("second");`)
	assert.NotContains(t, source, "ignored external body")
}

func TestInlineScriptSourceNilDoc(t *testing.T) {
	assert.Nil(t, InlineScriptSource(nil))
}
