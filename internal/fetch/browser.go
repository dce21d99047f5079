package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// MinContentWords is the word count below which an HTTP fetch is assumed to
// have hit a JavaScript-rendered shell.
const MinContentWords = 50

// ShouldUseBrowser reports whether extracted text is too thin to be the real page.
func ShouldUseBrowser(extractedText string) bool {
	return WordCount(extractedText) < MinContentWords
}

// Renderer returns the rendered HTML of a page.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// BrowserRenderer renders pages in headless Chrome. Requires Chrome or
// Chromium on the host.
type BrowserRenderer struct {
	Timeout time.Duration
	Settle  time.Duration
	Logger  *zap.Logger
}

// Render implements Renderer.
func (b *BrowserRenderer) Render(ctx context.Context, url string) (string, error) {
	timeout := b.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	settle := b.Settle
	if settle <= 0 {
		settle = 2 * time.Second
	}
	log := b.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log.Debug("rendering page in headless browser", zap.String("url", url))

	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, timeout)
	defer cancel()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Sleep(settle),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("browser rendering failed: %w", err)
	}

	log.Debug("rendered page", zap.String("url", url), zap.Int("bytes", len(html)))
	return html, nil
}

// RenderingFetcher falls back to a Renderer when the plain HTTP page is too thin.
type RenderingFetcher struct {
	Base     PageFetcher
	Renderer Renderer
	Logger   *zap.Logger
}

// Fetch implements PageFetcher.
func (f *RenderingFetcher) Fetch(ctx context.Context, urlStr string) (*Result, error) {
	result, err := f.Base.Fetch(ctx, urlStr)
	if err != nil || f.Renderer == nil {
		return result, err
	}

	platform := DetectPlatform(urlStr)
	text, _ := ExtractMainText(result.HTML, PlatformContentSelectors(platform), PlatformNoiseSelectors(platform)...)
	if !ShouldUseBrowser(text) {
		return result, nil
	}

	html, rerr := f.Renderer.Render(ctx, urlStr)
	if rerr != nil {
		if f.Logger != nil {
			f.Logger.Debug("browser fallback failed", zap.String("url", urlStr), zap.Error(rerr))
		}
		return result, nil
	}
	return &Result{
		URL:         result.URL,
		HTML:        html,
		ContentType: "text/html",
		StatusCode:  result.StatusCode,
		Rendered:    true,
	}, nil
}
