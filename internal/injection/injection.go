// Package injection implements the active SQL injection and reflected XSS
// scanners. Both follow the same loop: capture a baseline response, mutate
// one field at a time with each payload, classify the response, and stop at
// the first confirmed finding per field. A fixed delay between payload
// requests keeps the probe traffic polite.
package injection

import (
	"context"
	"net/url"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/vulnwatch/webscan/internal/config"
	"github.com/vulnwatch/webscan/internal/httpclient"
	"github.com/vulnwatch/webscan/internal/models"
	"github.com/vulnwatch/webscan/internal/payloads"
)

// Scanner drives injection testing against URL query parameters and form
// fields. The zero value is not usable; construct with NewScanner.
type Scanner struct {
	client   *httpclient.Client
	store    *payloads.Store
	cfg      config.DetectionConfig
	scanSQLi bool
	scanXSS  bool
	delay    time.Duration
	logger   zerolog.Logger
}

// NewScanner creates a Scanner. The checks config decides which of the two
// categories actually run; a scanner with both disabled is a no-op.
func NewScanner(client *httpclient.Client, store *payloads.Store, cfg config.DetectionConfig, checks config.ChecksConfig, log zerolog.Logger) *Scanner {
	return &Scanner{
		client:   client,
		store:    store,
		cfg:      cfg,
		scanSQLi: checks.ScanSQLi,
		scanXSS:  checks.ScanXSS,
		delay:    cfg.PayloadDelayDuration(),
		logger:   log.With().Str("component", "InjectionScanner").Logger(),
	}
}

// ScanPage tests every query parameter of the page URL and every injectable
// input of its forms. Request failures are logged and treated as
// not-vulnerable for that payload.
func (s *Scanner) ScanPage(ctx context.Context, pageURL string, forms []models.Form) []models.Finding {
	if !s.scanSQLi && !s.scanXSS {
		return nil
	}

	findings := s.scanQueryParams(ctx, pageURL)

	for i := range forms {
		if ctx.Err() != nil {
			return findings
		}
		findings = append(findings, s.scanForm(ctx, &forms[i])...)
	}

	return findings
}

func (s *Scanner) scanQueryParams(ctx context.Context, pageURL string) []models.Finding {
	parsed, err := url.Parse(pageURL)
	if err != nil || parsed.RawQuery == "" {
		return nil
	}

	params := parsed.Query()
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var findings []models.Finding

	baselineLen := -1
	if s.scanSQLi {
		if resp, err := s.client.Get(ctx, pageURL); err == nil {
			baselineLen = len(resp.Body)
		} else {
			s.logger.Debug().Err(err).Str("url", pageURL).Msg("Baseline request failed, skipping SQLi parameter tests")
		}
	}

	for _, name := range names {
		if ctx.Err() != nil {
			return findings
		}
		if s.scanSQLi && baselineLen >= 0 {
			if f := s.testSQLiQueryParam(ctx, pageURL, name, baselineLen); f != nil {
				findings = append(findings, *f)
			}
		}
		if s.scanXSS {
			if f := s.testXSSQueryParam(ctx, pageURL, name); f != nil {
				findings = append(findings, *f)
			}
		}
	}

	return findings
}

func (s *Scanner) scanForm(ctx context.Context, form *models.Form) []models.Finding {
	inputs := form.InjectableInputs()
	if len(inputs) == 0 {
		return nil
	}

	var findings []models.Finding

	baselineLen := -1
	if s.scanSQLi {
		if resp, err := s.submitForm(ctx, form, injectedValues(form, "", "")); err == nil {
			baselineLen = len(resp.Body)
		} else {
			s.logger.Debug().Err(err).Str("action", form.Action).Msg("Baseline submission failed, skipping SQLi form tests")
		}
	}

	for _, input := range inputs {
		if ctx.Err() != nil {
			return findings
		}
		if s.scanSQLi && baselineLen >= 0 {
			if f := s.testSQLiFormField(ctx, form, input.Name, baselineLen); f != nil {
				findings = append(findings, *f)
			}
		}
		if s.scanXSS {
			if f := s.testXSSFormField(ctx, form, input.Name); f != nil {
				findings = append(findings, *f)
			}
		}
	}

	return findings
}

// submitForm sends the values the way the form declares: urlencoded POST
// for post forms, query-string GET for everything else.
func (s *Scanner) submitForm(ctx context.Context, form *models.Form, values url.Values) (*httpclient.Response, error) {
	if form.Method == "post" {
		return s.client.PostForm(ctx, form.Action, values)
	}

	action, err := url.Parse(form.Action)
	if err != nil {
		return nil, err
	}
	query := action.Query()
	for name, vals := range values {
		query.Set(name, vals[0])
	}
	action.RawQuery = query.Encode()
	return s.client.Get(ctx, action.String())
}

// injectedValues builds form values with the payload in the target field
// and every other named input at its baseline value. An empty target yields
// the baseline submission.
func injectedValues(form *models.Form, target, payload string) url.Values {
	values := url.Values{}
	for _, input := range form.Inputs {
		if input.Name == "" {
			continue
		}
		if input.Name == target {
			values.Set(input.Name, payload)
		} else {
			values.Set(input.Name, input.Value)
		}
	}
	return values
}

// rewriteQuery returns the URL with one query parameter replaced.
func rewriteQuery(rawURL, param, value string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	query := parsed.Query()
	query.Set(param, value)
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func (s *Scanner) pause(ctx context.Context) {
	if s.delay <= 0 {
		return
	}
	timer := time.NewTimer(s.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
