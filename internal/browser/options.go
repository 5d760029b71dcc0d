// Package browser provides shared chromedp configuration with anti-bot-detection measures.
package browser

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"
)

// DefaultUserAgent is a realistic Chrome user agent
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"

// Options returns chromedp allocator options with anti-bot-detection
// measures. profileDir, when non-empty, points Chrome at a persistent
// profile so login state survives process restarts; the directory contents
// are opaque to us and managed entirely by the browser.
func Options(headless bool, profileDir string) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),

		// Prevent navigator.webdriver = true detection, which is enough
		// to trip xiaohongshu's automation checks.
		chromedp.Flag("disable-blink-features", "AutomationControlled"),

		chromedp.UserAgent(DefaultUserAgent),
		chromedp.WindowSize(1280, 900),

		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
	)

	if profileDir != "" {
		opts = append(opts, chromedp.UserDataDir(profileDir))
	}

	if headless {
		opts = append(opts, chromedp.Flag("disable-gpu", true))
	}

	return opts
}

// Screenshot captures the current page to dir as <name>_<hhmmss>.png. It is a
// diagnostic side effect: failures are logged, never propagated.
func Screenshot(ctx context.Context, dir, name string, logger *log.Logger) {
	shotCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var buf []byte
	if err := chromedp.Run(shotCtx, chromedp.CaptureScreenshot(&buf)); err != nil {
		logger.Printf("screenshot %s failed: %v", name, err)
		return
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_%s.png", name, time.Now().Format("150405")))
	if err := os.WriteFile(path, buf, 0644); err != nil {
		logger.Printf("screenshot %s write failed: %v", name, err)
		return
	}
	logger.Printf("screenshot: %s", filepath.Base(path))
}
