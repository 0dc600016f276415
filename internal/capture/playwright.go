package capture

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

type PlaywrightConfig struct {
	ViewportWidth  int
	ViewportHeight int

	FullPage bool
	Format   string
	Quality  int

	Timeout time.Duration
	Delay   time.Duration

	Headless                  bool
	ChromeDevtoolsProtocolURL string
}

// DefaultPlaywrightConfig captures lossless PNGs, which keeps compression
// artifacts out of the pixel difference.
func DefaultPlaywrightConfig() PlaywrightConfig {
	return PlaywrightConfig{
		ViewportWidth:  1280,
		ViewportHeight: 800,
		FullPage:       false,
		Format:         "png",
		Timeout:        30 * time.Second,
		Delay:          time.Second,
		Headless:       true,
	}
}

type playwrightCapturer struct {
	config PlaywrightConfig

	mu      sync.Mutex
	pw      *playwright.Playwright
	browser playwright.Browser
}

// NewPlaywrightCapturer starts the browser on first use and reuses it for
// every capture until Close.
func NewPlaywrightCapturer(ctx context.Context, p PlaywrightConfig) (Capturer, error) {
	return &playwrightCapturer{
		config: p,
	}, nil
}

func (c *playwrightCapturer) ensureBrowser() (playwright.Browser, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.browser != nil && c.browser.IsConnected() {
		return c.browser, nil
	}

	if c.pw == nil {
		pw, err := playwright.Run()
		if err != nil {
			return nil, fmt.Errorf("failed to start playwright: %w", err)
		}
		c.pw = pw
	}

	var err error
	if c.config.ChromeDevtoolsProtocolURL == "" {
		c.browser, err = c.pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
			Headless: playwright.Bool(c.config.Headless),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}
	} else {
		c.browser, err = c.pw.Chromium.ConnectOverCDP(c.config.ChromeDevtoolsProtocolURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to browser via CDP at %s: %w", c.config.ChromeDevtoolsProtocolURL, err)
		}
	}
	return c.browser, nil
}

func (c *playwrightCapturer) Capture(ctx context.Context, url string, options CaptureOptions) (*CaptureResult, error) {
	browser, err := c.ensureBrowser()
	if err != nil {
		return nil, err
	}

	// A context per capture keeps cookies and headers of two captures apart.
	browserContext, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  c.config.ViewportWidth,
			Height: c.config.ViewportHeight,
		},
		ExtraHttpHeaders: options.Headers,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}
	defer browserContext.Close()

	page, err := browserContext.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create new page: %w", err)
	}

	stop := context.AfterFunc(ctx, func() {
		_ = page.Close()
	})
	defer stop()

	if _, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
		Timeout:   playwright.Float(float64(c.config.Timeout.Milliseconds())),
	}); err != nil {
		return nil, fmt.Errorf("failed to navigate to %s: %w", url, err)
	}

	if c.config.Delay > 0 {
		timer := time.NewTimer(c.config.Delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}

	if len(options.MaskSelectors) > 0 {
		script, err := maskScript()
		if err != nil {
			return nil, err
		}
		if _, err := page.Evaluate(script, options.MaskSelectors); err != nil {
			return nil, fmt.Errorf("failed to mask selectors: %w", err)
		}
	}

	screenshotOptions := playwright.PageScreenshotOptions{
		FullPage:   playwright.Bool(c.config.FullPage),
		Animations: playwright.ScreenshotAnimationsDisabled,
	}
	contentType := "image/png"
	switch c.config.Format {
	case "jpeg", "jpg":
		screenshotOptions.Type = playwright.ScreenshotTypeJpeg
		if c.config.Quality > 0 {
			screenshotOptions.Quality = playwright.Int(c.config.Quality)
		}
		contentType = "image/jpeg"
	default:
		screenshotOptions.Type = playwright.ScreenshotTypePng
	}

	screenshot, err := page.Screenshot(screenshotOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to take screenshot: %w", err)
	}

	return &CaptureResult{
		Screenshot:  screenshot,
		ContentType: contentType,
	}, nil
}

func (c *playwrightCapturer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.browser != nil {
		if err := c.browser.Close(); err != nil {
			return fmt.Errorf("failed to close browser: %w", err)
		}
		c.browser = nil
	}
	if c.pw != nil {
		if err := c.pw.Stop(); err != nil {
			return fmt.Errorf("failed to stop playwright: %w", err)
		}
		c.pw = nil
	}
	return nil
}

// maskScript returns a page function taking a list of selectors that paints
// every matching element over with black.
func maskScript() (string, error) {
	unique := make([]byte, 8)
	if _, err := rand.Read(unique); err != nil {
		return "", fmt.Errorf("failed to generate unique identifier: %w", err)
	}
	maskClassName := fmt.Sprintf("mask-%s", hex.EncodeToString(unique))

	maskCSS := fmt.Sprintf(`
.%[1]s {
  position: relative !important;
}
.%[1]s::after {
  content: "" !important;
  position: absolute !important;
  inset: 0 !important;
  background-color: black !important;
  z-index: 2147483646 !important;
  pointer-events: none !important;
}
`, maskClassName)

	return fmt.Sprintf(`(selectors) => {
	const style = document.createElement('style');
	style.textContent = %q;
	document.head.appendChild(style);

	for (const selector of selectors) {
		for (const element of document.querySelectorAll(selector)) {
			element.classList.add(%q);
		}
	}
}`, maskCSS, maskClassName), nil
}
