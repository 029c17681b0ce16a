// Package extractor pulls links, forms and external resource references out
// of parsed HTML documents. The crawler and the analyzers share these
// helpers so a page is parsed exactly once.
package extractor

import (
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/vulnwatch/webscan/internal/models"
	"github.com/vulnwatch/webscan/internal/urlhandler"
)

// ScriptRef is one script tag with a src attribute.
type ScriptRef struct {
	URL       string
	Integrity string
	External  bool
}

// ExtractLinks returns the normalized absolute targets of all anchor tags,
// deduplicated in document order. Anchors with unsupported schemes
// (javascript:, mailto:) are skipped.
func ExtractLinks(doc *goquery.Document, base *url.URL) []string {
	if doc == nil {
		return nil
	}

	var links []string
	seen := make(map[string]struct{})

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		resolved, err := urlhandler.ResolveURL(href, base)
		if err != nil {
			return
		}
		if _, ok := seen[resolved]; ok {
			return
		}
		seen[resolved] = struct{}{}
		links = append(links, resolved)
	})

	return links
}

// ExtractForms returns all forms on the page with their inputs. A missing
// or empty action submits back to the page itself; relative actions are
// resolved against the base URL. The method defaults to get.
func ExtractForms(doc *goquery.Document, pageURL string, base *url.URL) []models.Form {
	if doc == nil {
		return nil
	}

	var forms []models.Form
	now := time.Now()

	doc.Find("form").Each(func(_ int, formSel *goquery.Selection) {
		action := strings.TrimSpace(formSel.AttrOr("action", ""))
		if action == "" {
			action = pageURL
		} else if base != nil {
			if resolved, err := base.Parse(action); err == nil {
				action = resolved.String()
			}
		}

		method := strings.ToLower(strings.TrimSpace(formSel.AttrOr("method", "")))
		if method == "" {
			method = "get"
		}

		form := models.Form{
			URL:       pageURL,
			Action:    action,
			Method:    method,
			Timestamp: now,
		}

		formSel.Find("input").Each(func(_ int, inputSel *goquery.Selection) {
			inputType := strings.ToLower(strings.TrimSpace(inputSel.AttrOr("type", "text")))
			if inputType == "" {
				inputType = "text"
			}
			form.Inputs = append(form.Inputs, models.FormInput{
				Name:  inputSel.AttrOr("name", ""),
				Type:  inputType,
				Value: inputSel.AttrOr("value", ""),
			})
		})

		formSel.Find("textarea").Each(func(_ int, sel *goquery.Selection) {
			form.Inputs = append(form.Inputs, models.FormInput{
				Name: sel.AttrOr("name", ""),
				Type: "textarea",
			})
		})

		formSel.Find("select").Each(func(_ int, sel *goquery.Selection) {
			value := ""
			if opt := sel.Find("option").First(); opt.Length() > 0 {
				value = opt.AttrOr("value", strings.TrimSpace(opt.Text()))
			}
			form.Inputs = append(form.Inputs, models.FormInput{
				Name:  sel.AttrOr("name", ""),
				Type:  "select",
				Value: value,
			})
		})

		forms = append(forms, form)
	})

	return forms
}

// ExtractScripts returns all script tags with a src attribute. Relative
// sources are resolved against the base URL and protocol-relative sources
// are pinned to https.
func ExtractScripts(doc *goquery.Document, base *url.URL) []ScriptRef {
	if doc == nil {
		return nil
	}

	var scripts []ScriptRef

	doc.Find("script[src]").Each(func(_ int, sel *goquery.Selection) {
		src := strings.TrimSpace(sel.AttrOr("src", ""))
		if src == "" {
			return
		}

		scripts = append(scripts, ScriptRef{
			URL:       resolveResourceURL(src, base),
			Integrity: strings.TrimSpace(sel.AttrOr("integrity", "")),
			External:  isExternal(src, base),
		})
	})

	return scripts
}

// ExtractStylesheets returns the resolved hrefs of all stylesheet links.
func ExtractStylesheets(doc *goquery.Document, base *url.URL) []string {
	if doc == nil {
		return nil
	}

	var sheets []string

	doc.Find("link[rel='stylesheet'][href]").Each(func(_ int, sel *goquery.Selection) {
		href := strings.TrimSpace(sel.AttrOr("href", ""))
		if href == "" {
			return
		}
		sheets = append(sheets, resolveResourceURL(href, base))
	})

	return sheets
}

func resolveResourceURL(src string, base *url.URL) string {
	if strings.HasPrefix(src, "//") {
		return "https:" + src
	}
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return src
	}
	if base == nil {
		return src
	}
	resolved, err := base.Parse(src)
	if err != nil {
		return src
	}
	return resolved.String()
}

func isExternal(src string, base *url.URL) bool {
	resolved := resolveResourceURL(src, base)
	parsed, err := url.Parse(resolved)
	if err != nil || base == nil {
		return false
	}
	if parsed.Host == "" {
		return false
	}
	return parsed.Host != base.Host
}
