package extractor

import (
	"net/url"
	"strings"

	"github.com/BishopFox/jsluice"
	"github.com/PuerkitoBio/goquery"

	"github.com/vulnwatch/webscan/internal/urlhandler"
)

// ExtractScriptEndpoints statically mines URLs and request paths out of
// JavaScript source: fetch and XHR calls, location assignments, and
// path-shaped string literals. Matches are resolved against base,
// normalized, and deduplicated in discovery order. Matches containing
// jsluice's EXPR placeholder for dynamic segments are dropped since they
// cannot be fetched as written.
func ExtractScriptEndpoints(source []byte, base *url.URL) []string {
	if len(source) == 0 {
		return nil
	}

	var endpoints []string
	seen := make(map[string]struct{})

	for _, match := range jsluice.NewAnalyzer(source).GetURLs() {
		if strings.Contains(match.URL, "EXPR") {
			continue
		}
		resolved, err := urlhandler.ResolveURL(match.URL, base)
		if err != nil {
			continue
		}
		if _, ok := seen[resolved]; ok {
			continue
		}
		seen[resolved] = struct{}{}
		endpoints = append(endpoints, resolved)
	}

	return endpoints
}

// InlineScriptSource concatenates the bodies of all inline script tags so
// the whole page's embedded JavaScript can be mined in one pass.
func InlineScriptSource(doc *goquery.Document) []byte {
	if doc == nil {
		return nil
	}

	var sb strings.Builder
	doc.Find("script").Each(func(_ int, sel *goquery.Selection) {
		if _, external := sel.Attr("src"); external {
			return
		}
		sb.WriteString(sel.Text())
		sb.WriteString("\n")
	})
	return []byte(sb.String())
}
