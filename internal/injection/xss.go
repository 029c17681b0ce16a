package injection

import (
	"context"
	"math/rand"
	"slices"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/vulnwatch/webscan/internal/models"
)

const (
	xssDescription       = "Cross-site scripting (XSS) vulnerability detected"
	xssScriptDescription = "Critical XSS vulnerability - Direct script execution possible"
	xssRecommendation    = "Implement proper output encoding and input validation"
	xssConsequences      = "Attackers can inject malicious JavaScript that executes in users' browsers, allowing them to steal cookies and session tokens, capture keystrokes, redirect users to fake websites, or perform actions on behalf of the victim. This could lead to account takeover, data theft, or spreading malware to your users."
)

// xssIndicators are the executable fragments a reflected payload must keep
// intact. Matching on these instead of the full payload tolerates the
// attribute re-quoting HTML parsers perform on round trips.
var xssIndicators = []string{
	"<script>",
	"javascript:",
	"onerror=",
	"onload=",
	"onclick=",
	"onmouseover=",
	"onfocus=",
	"onmouseout=",
	"onkeypress=",
	"onsubmit=",
	"ontoggle=",
	"alert(",
	"String.fromCharCode",
	"eval(",
	"document.cookie",
	"fetch(",
}

const markerAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// markerPayload builds a script payload carrying a unique token so its
// reflection can be located even when canned payloads are filtered.
func markerPayload() (payload, marker string) {
	var sb strings.Builder
	for i := 0; i < 8; i++ {
		sb.WriteByte(markerAlphabet[rand.Intn(len(markerAlphabet))])
	}
	marker = "xss" + sb.String()
	return "<script>alert('" + marker + "')</script>", marker
}

// isXSSReflected reports whether the payload came back unescaped and
// outside textarea, code and pre blocks, where markup renders inert.
func isXSSReflected(body, payload string) bool {
	if !strings.Contains(body, payload) {
		return false
	}

	cleaned := stripInertBlocks(body)
	for _, indicator := range xssIndicators {
		if strings.Contains(payload, indicator) && strings.Contains(cleaned, indicator) {
			return true
		}
	}
	return false
}

func stripInertBlocks(body string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return body
	}
	doc.Find("textarea, code, pre").Remove()
	cleaned, err := doc.Html()
	if err != nil {
		return body
	}
	return cleaned
}

// reflectionContexts classifies where the needle landed in the response:
// script bodies, element attributes, plain markup, URL attributes.
func reflectionContexts(body, needle string) []string {
	if !strings.Contains(body, needle) {
		return nil
	}

	var contexts []string

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err == nil {
		inScript := false
		doc.Find("script").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			if strings.Contains(sel.Text(), needle) {
				inScript = true
				return false
			}
			return true
		})
		if inScript {
			contexts = append(contexts, "script")
		}

		seen := make(map[string]struct{})
		doc.Find("*").Each(func(_ int, sel *goquery.Selection) {
			for _, node := range sel.Nodes {
				for _, attr := range node.Attr {
					if !strings.Contains(attr.Val, needle) {
						continue
					}
					key := "attribute:" + attr.Key
					if _, ok := seen[key]; ok {
						continue
					}
					seen[key] = struct{}{}
					contexts = append(contexts, key)
				}
			}
		})
	}

	contexts = append(contexts, "html")
	if strings.Contains(body, `href="`+needle+`"`) || strings.Contains(body, `src="`+needle+`"`) {
		contexts = append(contexts, "url")
	}

	return contexts
}

func (s *Scanner) testXSSQueryParam(ctx context.Context, pageURL, param string) *models.Finding {
	for _, payload := range s.store.XSS() {
		testURL, err := rewriteQuery(pageURL, param, payload)
		if err != nil {
			return nil
		}

		resp, err := s.client.Get(ctx, testURL)
		if err != nil {
			s.logger.Debug().Err(err).Str("parameter", param).Msg("XSS parameter probe failed")
			s.pause(ctx)
			continue
		}

		if body := resp.BodyString(); isXSSReflected(body, payload) {
			finding := s.xssFinding(pageURL, payload, "exact", reflectionContexts(body, payload))
			finding.Details.Parameter = param
			finding.Details.Method = "get"
			return &finding
		}
		s.pause(ctx)
	}

	payload, marker := markerPayload()
	testURL, err := rewriteQuery(pageURL, param, payload)
	if err != nil {
		return nil
	}
	resp, err := s.client.Get(ctx, testURL)
	if err != nil {
		return nil
	}
	if body := resp.BodyString(); isXSSReflected(body, payload) {
		finding := s.xssFinding(pageURL, payload, "marker", reflectionContexts(body, marker))
		finding.Details.Parameter = param
		finding.Details.Method = "get"
		return &finding
	}
	return nil
}

func (s *Scanner) testXSSFormField(ctx context.Context, form *models.Form, field string) *models.Finding {
	for _, payload := range s.store.XSS() {
		resp, err := s.submitForm(ctx, form, injectedValues(form, field, payload))
		if err != nil {
			s.logger.Debug().Err(err).Str("field", field).Msg("XSS form probe failed")
			s.pause(ctx)
			continue
		}

		if body := resp.BodyString(); isXSSReflected(body, payload) {
			finding := s.xssFinding(form.URL, payload, "exact", reflectionContexts(body, payload))
			finding.Details.InputField = field
			finding.Details.Method = form.Method
			return &finding
		}
		s.pause(ctx)
	}

	payload, marker := markerPayload()
	resp, err := s.submitForm(ctx, form, injectedValues(form, field, payload))
	if err != nil {
		return nil
	}
	if body := resp.BodyString(); isXSSReflected(body, payload) {
		finding := s.xssFinding(form.URL, payload, "marker", reflectionContexts(body, marker))
		finding.Details.InputField = field
		finding.Details.Method = form.Method
		return &finding
	}
	return nil
}

func (s *Scanner) xssFinding(pageURL, payload, reflection string, contexts []string) models.Finding {
	severity := models.SeverityHigh
	description := xssDescription
	if slices.Contains(contexts, "script") {
		severity = models.SeverityCritical
		description = xssScriptDescription
	}

	return models.Finding{
		Type:      models.FindingReflectedXSS,
		URL:       pageURL,
		Timestamp: time.Now(),
		Details: models.FindingDetails{
			Severity:           severity,
			Description:        description,
			Recommendation:     xssRecommendation,
			Consequences:       xssConsequences,
			Payload:            payload,
			DetectionMethod:    reflection,
			ReflectionContexts: contexts,
		},
	}
}
