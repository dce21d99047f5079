package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPFetcher_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body><h1>Test</h1></body></html>"))
	}))
	defer server.Close()

	result, err := NewHTTPFetcher(server.Client(), nil).Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, server.URL, result.URL)
	assert.Contains(t, result.HTML, "<h1>Test</h1>")
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.False(t, result.FromCache)
}

func TestHTTPFetcher_InvalidURL(t *testing.T) {
	for _, u := range []string{"not-a-valid-url", "ftp://example.com/file", ""} {
		_, err := NewHTTPFetcher(nil, nil).Fetch(context.Background(), u)
		require.Error(t, err)

		var fetchErr *Error
		assert.ErrorAs(t, err, &fetchErr)
		assert.Contains(t, err.Error(), "invalid URL")
	}
}

func TestHTTPFetcher_HTTPError(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{http.StatusNotFound, false},
		{http.StatusGone, false},
		{http.StatusTooManyRequests, true},
		{http.StatusBadGateway, true},
	}
	for _, tt := range tests {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tt.status)
		}))

		result, err := NewHTTPFetcher(server.Client(), nil).Fetch(context.Background(), server.URL)
		require.Error(t, err)
		require.NotNil(t, result)
		assert.Equal(t, tt.status, result.StatusCode)

		var fetchErr *Error
		require.ErrorAs(t, err, &fetchErr)
		assert.Equal(t, tt.retryable, fetchErr.Retryable, "status %d", tt.status)
		server.Close()
	}
}

func TestExtractMainText_PrefersSelectorsAndDropsNoise(t *testing.T) {
	html := `
	<html>
		<body>
			<nav>Navigation</nav>
			<div class="job-description">
				<h2>About the role</h2>
				<p>Build   distributed systems.</p>
				<ul><li>Go</li><li>Kafka</li></ul>
				<form>Apply now</form>
			</div>
			<footer>Footer text</footer>
		</body>
	</html>`

	text, err := ExtractMainText(html, JobPostingSelectors(), PlatformNoiseSelectors(PlatformUnknown)...)
	require.NoError(t, err)
	assert.Contains(t, text, "About the role")
	assert.Contains(t, text, "Build distributed systems.")
	assert.Contains(t, text, "Go\nKafka")
	assert.NotContains(t, text, "Navigation")
	assert.NotContains(t, text, "Footer")
	assert.NotContains(t, text, "Apply now")
}

func TestExtractMainText_FallsBackToBody(t *testing.T) {
	text, err := ExtractMainText(`<html><body><span>Only body</span></body></html>`, []string{".missing"})
	require.NoError(t, err)
	assert.Equal(t, "Only body", text)
}

func TestCleanWhitespace(t *testing.T) {
	assert.Equal(t, "a b\nc", cleanWhitespace("  a   b \n\n\t\n c  "))
}

func TestShouldUseBrowser(t *testing.T) {
	assert.True(t, ShouldUseBrowser("Loading..."))
	assert.False(t, ShouldUseBrowser(strings.Repeat("word ", MinContentWords)))
}

type stubFetcher struct {
	calls  int
	result *Result
	err    error
}

func (s *stubFetcher) Fetch(context.Context, string) (*Result, error) {
	s.calls++
	if s.result == nil {
		return nil, s.err
	}
	r := *s.result
	return &r, s.err
}

type stubRenderer struct {
	html  string
	err   error
	calls int
}

func (s *stubRenderer) Render(context.Context, string) (string, error) {
	s.calls++
	return s.html, s.err
}

func TestRenderingFetcher(t *testing.T) {
	thin := &Result{URL: "https://jobs.example.com/1", HTML: "<html><body><div id='root'></div></body></html>", StatusCode: 200}
	full := &Result{URL: "https://jobs.example.com/1", HTML: "<html><body><main>" + strings.Repeat("content ", 80) + "</main></body></html>", StatusCode: 200}

	t.Run("thin page is rendered", func(t *testing.T) {
		r := &stubRenderer{html: full.HTML}
		f := &RenderingFetcher{Base: &stubFetcher{result: thin}, Renderer: r}
		res, err := f.Fetch(context.Background(), thin.URL)
		require.NoError(t, err)
		assert.True(t, res.Rendered)
		assert.Equal(t, full.HTML, res.HTML)
	})

	t.Run("full page is not rendered", func(t *testing.T) {
		r := &stubRenderer{}
		f := &RenderingFetcher{Base: &stubFetcher{result: full}, Renderer: r}
		res, err := f.Fetch(context.Background(), full.URL)
		require.NoError(t, err)
		assert.False(t, res.Rendered)
		assert.Zero(t, r.calls)
	})

	t.Run("render failure keeps http page", func(t *testing.T) {
		r := &stubRenderer{err: assert.AnError}
		f := &RenderingFetcher{Base: &stubFetcher{result: thin}, Renderer: r}
		res, err := f.Fetch(context.Background(), thin.URL)
		require.NoError(t, err)
		assert.Equal(t, thin.HTML, res.HTML)
	})
}
