package models

import "time"

// FormInput is one input, select, or textarea inside a form.
type FormInput struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value string `json:"value,omitempty"`
}

// Form is a form discovered during the crawl. Action is already resolved
// against the page URL; Method is lowercased and defaults to get.
type Form struct {
	URL       string      `json:"url"`
	Action    string      `json:"action"`
	Method    string      `json:"method"`
	Inputs    []FormInput `json:"inputs"`
	Timestamp time.Time   `json:"timestamp"`
}

// InjectableInputs returns the inputs worth mutating during injection
// testing. Submit buttons and hidden CSRF-style tokens keep their baseline
// values, so they are excluded.
func (f *Form) InjectableInputs() []FormInput {
	var out []FormInput
	for _, in := range f.Inputs {
		switch in.Type {
		case "submit", "button", "image", "reset", "file", "hidden":
			continue
		}
		if in.Name == "" {
			continue
		}
		out = append(out, in)
	}
	return out
}

// Link is a source-to-target edge in the crawled graph. TargetURL may be
// outside the crawl scope; such links are recorded but never fetched.
type Link struct {
	SourceURL string    `json:"source_url"`
	TargetURL string    `json:"target_url"`
	Timestamp time.Time `json:"timestamp"`
}
