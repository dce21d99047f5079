package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jonathan/job-matcher/internal/types"
)

func intPtr(v int) *int { return &v }

func newTestAdzuna(t *testing.T, handler http.HandlerFunc) (*Adzuna, *observer.ObservedLogs) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	core, logs := observer.New(zap.InfoLevel)
	a := NewAdzuna(AdzunaConfig{
		AppID:        "id",
		AppKey:       "key",
		Country:      "us",
		BaseURL:      srv.URL,
		Timeout:      200 * time.Millisecond,
		RetryBackoff: time.Millisecond,
	}, srv.Client(), zap.New(core))
	a.sleep = func(context.Context, time.Duration) error { return nil }
	return a, logs
}

func TestAdzuna_SearchBuildsQuery(t *testing.T) {
	var gotPath string
	var gotQuery map[string][]string
	a, _ := newTestAdzuna(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		_, _ = w.Write([]byte(`{"count": 137, "results": [{"id": "1"}, {"id": "2"}]}`))
	})

	page, err := a.Search(context.Background(), types.SearchQuery{
		What:       "golang",
		Where:      "Austin",
		SalaryMin:  intPtr(100000),
		MaxDaysOld: intPtr(7),
		RemoteOnly: true,
		FullTime:   true,
		SortBy:     "date",
		Page:       2,
		PageSize:   10,
	})
	require.NoError(t, err)

	assert.Equal(t, "/us/search/2", gotPath)
	assert.Equal(t, "golang", gotQuery["what"][0])
	assert.Equal(t, "Austin", gotQuery["where"][0])
	assert.Equal(t, "100000", gotQuery["salary_min"][0])
	assert.Equal(t, "7", gotQuery["max_days_old"][0])
	assert.Equal(t, "remote", gotQuery["what_and"][0])
	assert.Equal(t, "1", gotQuery["full_time"][0])
	assert.Equal(t, "10", gotQuery["results_per_page"][0])
	assert.Equal(t, "date", gotQuery["sort_by"][0])
	assert.NotContains(t, gotQuery, "contract")
	assert.NotContains(t, gotQuery, "salary_max")

	assert.Equal(t, 137, page.Count)
	assert.Len(t, page.Records, 2)
	assert.Equal(t, "adzuna", page.Source)
}

func TestAdzuna_RetriesOnceThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	a, logs := newTestAdzuna(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"count": 0, "results": []}`))
	})

	page, err := a.Search(context.Background(), types.SearchQuery{})
	require.NoError(t, err)
	assert.Empty(t, page.Records)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 1, logs.FilterMessage("provider call failed, retrying").Len())
}

func TestAdzuna_FailureClassification(t *testing.T) {
	tests := []struct {
		name      string
		handler   http.HandlerFunc
		wantKind  types.FailureKind
		wantCalls int32
	}{
		{
			name: "rate limited",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
			},
			wantKind:  types.FailureRateLimited,
			wantCalls: 2,
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`<html>maintenance</html>`))
			},
			wantKind:  types.FailureMalformed,
			wantCalls: 2,
		},
		{
			name: "missing results",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"count": 3}`))
			},
			wantKind:  types.FailureMalformed,
			wantCalls: 2,
		},
		{
			name: "upstream error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			},
			wantKind:  types.FailureUpstream,
			wantCalls: 2,
		},
		{
			name: "rejected is not retried",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			},
			wantKind:  types.FailureRejected,
			wantCalls: 1,
		},
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(2 * time.Second):
				}
			},
			wantKind:  types.FailureTimeout,
			wantCalls: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			a, logs := newTestAdzuna(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				tt.handler(w, r)
			})

			page, err := a.Search(context.Background(), types.SearchQuery{What: "go"})
			require.Error(t, err)
			assert.Nil(t, page)

			var unavailable *types.SourceUnavailableError
			require.ErrorAs(t, err, &unavailable)
			assert.Equal(t, tt.wantKind, unavailable.Kind)
			assert.Equal(t, "adzuna", unavailable.Source)
			assert.Equal(t, tt.wantCalls, calls.Load())
			assert.Equal(t, 1, logs.FilterMessage("provider unavailable").Len())
		})
	}
}

func TestAdzuna_MissingCredentials(t *testing.T) {
	a := NewAdzuna(AdzunaConfig{}, nil, nil)
	_, err := a.Search(context.Background(), types.SearchQuery{})
	assert.True(t, types.IsSourceUnavailable(err))
}

func TestAdzuna_CancelledContextStopsRetry(t *testing.T) {
	var calls atomic.Int32
	a, _ := newTestAdzuna(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})
	ctx, cancel := context.WithCancel(context.Background())
	a.sleep = func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}

	_, err := a.Search(ctx, types.SearchQuery{})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 2*time.Second, parseRetryAfter("2"))
	assert.Equal(t, maxRetryAfter, parseRetryAfter("120"))
	assert.Zero(t, parseRetryAfter(""))
	assert.Zero(t, parseRetryAfter("soon"))
}
