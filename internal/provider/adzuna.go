package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/job-matcher/internal/logger"
	"github.com/jonathan/job-matcher/internal/normalize"
	"github.com/jonathan/job-matcher/internal/types"
)

const (
	// DefaultAdzunaBaseURL is the Adzuna jobs API root.
	DefaultAdzunaBaseURL = "https://api.adzuna.com/v1/api/jobs"
	defaultTimeout       = 15 * time.Second
	defaultRetryBackoff  = 500 * time.Millisecond
	maxRetryAfter        = 5 * time.Second
	maxBodySize          = 4 << 20
)

// AdzunaConfig configures the Adzuna client.
type AdzunaConfig struct {
	AppID        string
	AppKey       string
	Country      string
	BaseURL      string
	Timeout      time.Duration
	RetryBackoff time.Duration
}

// Adzuna queries the Adzuna search API.
type Adzuna struct {
	cfg    AdzunaConfig
	client *http.Client
	logger *zap.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewAdzuna creates an Adzuna client. A nil httpClient uses a default client.
func NewAdzuna(cfg AdzunaConfig, httpClient *http.Client, log *zap.Logger) *Adzuna {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultAdzunaBaseURL
	}
	if cfg.Country == "" {
		cfg.Country = "us"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = defaultRetryBackoff
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Adzuna{cfg: cfg, client: httpClient, logger: log, sleep: sleepContext}
}

// Name implements Provider.
func (a *Adzuna) Name() string { return normalize.SourceAdzuna }

// attemptError is one failed call, classified.
type attemptError struct {
	kind       types.FailureKind
	retryAfter time.Duration
	err        error
}

func (e *attemptError) Error() string { return fmt.Sprintf("%s: %v", e.kind, e.err) }
func (e *attemptError) Unwrap() error { return e.err }

// Search fetches one page. A failed call is retried once after a backoff
// unless the provider rejected the request outright. Any final failure is a
// SourceUnavailableError; no partial page is returned.
func (a *Adzuna) Search(ctx context.Context, q types.SearchQuery) (*RawPage, error) {
	if a.cfg.AppID == "" || a.cfg.AppKey == "" {
		return nil, &types.SourceUnavailableError{
			Source: a.Name(),
			Kind:   types.FailureRejected,
			Cause:  errors.New("ADZUNA_APP_ID / ADZUNA_APP_KEY not set"),
		}
	}

	reqURL := a.searchURL(q)
	var last *attemptError
	for attempt := 1; attempt <= 2; attempt++ {
		page, aerr := a.fetchPage(ctx, reqURL)
		if aerr == nil {
			return page, nil
		}
		last = aerr

		if attempt == 2 || !aerr.kind.Retryable() || ctx.Err() != nil {
			break
		}
		wait := a.cfg.RetryBackoff
		if aerr.retryAfter > wait {
			wait = aerr.retryAfter
		}
		a.logger.Warn("provider call failed, retrying",
			zap.String("source", a.Name()),
			zap.String("kind", string(aerr.kind)),
			zap.Duration("backoff", wait),
			zap.Error(aerr.err),
		)
		if err := a.sleep(ctx, wait); err != nil {
			last = &attemptError{kind: types.FailureTimeout, err: err}
			break
		}
	}

	a.logger.Error("provider unavailable",
		zap.String("source", a.Name()),
		zap.String("kind", string(last.kind)),
		zap.Error(last.err),
	)
	return nil, &types.SourceUnavailableError{Source: a.Name(), Kind: last.kind, Cause: last.err}
}

func (a *Adzuna) searchURL(q types.SearchQuery) string {
	q = q.WithDefaults()
	params := url.Values{}
	params.Set("app_id", a.cfg.AppID)
	params.Set("app_key", a.cfg.AppKey)
	params.Set("results_per_page", strconv.Itoa(q.PageSize))
	params.Set("content-type", "application/json")
	if q.What != "" {
		params.Set("what", q.What)
	}
	if q.Where != "" {
		params.Set("where", q.Where)
	}
	if q.MaxDaysOld != nil && *q.MaxDaysOld > 0 {
		params.Set("max_days_old", strconv.Itoa(*q.MaxDaysOld))
	}
	if q.SalaryMin != nil && *q.SalaryMin > 0 {
		params.Set("salary_min", strconv.Itoa(*q.SalaryMin))
	}
	if q.SalaryMax != nil && *q.SalaryMax > 0 {
		params.Set("salary_max", strconv.Itoa(*q.SalaryMax))
	}
	if q.FullTime {
		params.Set("full_time", "1")
	}
	if q.Contract {
		params.Set("contract", "1")
	}
	if q.RemoteOnly {
		params.Set("what_and", "remote")
	}
	if q.SortBy != "" {
		params.Set("sort_by", q.SortBy)
	}
	endpoint := fmt.Sprintf("%s/%s/search/%d", strings.TrimRight(a.cfg.BaseURL, "/"), a.cfg.Country, q.Page)
	return endpoint + "?" + params.Encode()
}

type adzunaResponse struct {
	Results json.RawMessage `json:"results"`
	Count   int             `json:"count"`
}

func (a *Adzuna) fetchPage(ctx context.Context, reqURL string) (*RawPage, *attemptError) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &attemptError{kind: types.FailureRejected, err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &attemptError{kind: classifyTransport(err), err: fmt.Errorf("http GET: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &attemptError{kind: classifyTransport(err), err: fmt.Errorf("read body: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &attemptError{
			kind:       types.FailureRateLimited,
			retryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			err:        fmt.Errorf("adzuna returned 429: %s", logger.TruncateForLog(string(body), 200)),
		}
	case resp.StatusCode >= 500:
		return nil, &attemptError{kind: types.FailureUpstream, err: fmt.Errorf("adzuna returned %d: %s", resp.StatusCode, logger.TruncateForLog(string(body), 200))}
	case resp.StatusCode != http.StatusOK:
		return nil, &attemptError{kind: types.FailureRejected, err: fmt.Errorf("adzuna returned %d: %s", resp.StatusCode, logger.TruncateForLog(string(body), 200))}
	}

	var apiResp adzunaResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, &attemptError{kind: types.FailureMalformed, err: fmt.Errorf("json unmarshal: %w", err)}
	}
	if len(apiResp.Results) == 0 {
		return nil, &attemptError{kind: types.FailureMalformed, err: errors.New("response has no results field")}
	}
	var records []json.RawMessage
	if err := json.Unmarshal(apiResp.Results, &records); err != nil {
		return nil, &attemptError{kind: types.FailureMalformed, err: fmt.Errorf("results is not an array: %w", err)}
	}
	return &RawPage{Source: a.Name(), Records: records, Count: apiResp.Count}, nil
}

func classifyTransport(err error) types.FailureKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return types.FailureTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return types.FailureTimeout
	}
	return types.FailureUpstream
}

func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	var d time.Duration
	if secs, err := strconv.Atoi(v); err == nil {
		d = time.Duration(secs) * time.Second
	} else if t, err := http.ParseTime(v); err == nil {
		d = time.Until(t)
	}
	if d < 0 {
		return 0
	}
	if d > maxRetryAfter {
		return maxRetryAfter
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
