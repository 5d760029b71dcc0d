// Package publisher implements the note publish workflow against the
// creator.xiaohongshu.com composer, and the bounded-retry loop around it.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	browseropts "github.com/wszrw123/xiaohongshu-automation/internal/browser"
	"github.com/wszrw123/xiaohongshu-automation/internal/locator"
	"github.com/wszrw123/xiaohongshu-automation/internal/types"
)

const composerURL = "https://creator.xiaohongshu.com/publish/publish?source=official"

// ErrNoDefaultCover means the note has no media and the configured default
// cover is missing. No retry can fix a missing file.
var ErrNoDefaultCover = errors.New("no media provided and default cover unavailable")

const (
	// fieldTimeout bounds each candidate-pattern wait.
	fieldTimeout = 5 * time.Second

	// uploadPollMax x uploadPollInterval bounds the wait for image
	// previews to render after upload.
	uploadPollMax      = 30
	uploadPollInterval = time.Second

	// settleDelay is the fixed wait between clicking publish and reading
	// the outcome.
	settleDelay = 5 * time.Second

	keyDelay  = 15 * time.Millisecond
	lineDelay = 50 * time.Millisecond
)

// Workflow executes one publish attempt. It reads session state only through
// the composer redirect check; the session controller owns everything else.
type Workflow struct {
	resolver      *locator.Resolver
	patterns      map[string][]locator.Pattern
	defaultCover  string
	screenshotDir string
	log           *log.Logger

	// run executes browser actions; tests swap it out the same way the
	// locator's probe is swapped.
	run func(ctx context.Context, actions ...chromedp.Action) error
}

// NewWorkflow creates a Workflow. patterns must cover the locator targets;
// use locator.Merge to overlay config-supplied lists onto the defaults.
func NewWorkflow(patterns map[string][]locator.Pattern, defaultCover, screenshotDir string, logger *log.Logger) *Workflow {
	return &Workflow{
		resolver:      locator.New(logger),
		patterns:      patterns,
		defaultCover:  defaultCover,
		screenshotDir: screenshotDir,
		log:           logger,
		run:           chromedp.Run,
	}
}

// Publish runs the full composer sequence for one note. Every fault is
// converted to a status at this boundary; nothing escapes unclassified.
func (w *Workflow) Publish(ctx context.Context, rec types.ContentRecord, media types.MediaSet, dryRun bool) (res types.WorkflowResult) {
	res = types.WorkflowResult{Status: types.StatusInit, Time: time.Now()}

	defer func() {
		if r := recover(); r != nil {
			w.shoot(ctx, "publish_error")
			res.Status = types.StatusError
			res.Success = false
			res.Error = fmt.Sprintf("panic: %v", r)
		}
	}()

	rec, clipped := rec.Truncated()
	if clipped {
		w.log.Printf("content exceeded platform limits, truncated to %q", rec.Title)
	}

	w.log.Printf("publishing: %s", rec.Title)

	status, err := w.attempt(ctx, rec, media, dryRun)
	if err != nil {
		w.log.Printf("publish attempt failed: %v", err)
		w.shoot(ctx, "publish_error")
		res.Status = types.StatusError
		res.Error = err.Error()
		return res
	}

	res.Status = status
	res.Success = status == types.StatusSuccess || status == types.StatusDryRun
	return res
}

// attempt is the linear state machine: navigate, verify authorization,
// upload media, fill metadata, tag, submit, verify outcome. Short-circuit
// states come back as a status; genuine faults as an error.
func (w *Workflow) attempt(ctx context.Context, rec types.ContentRecord, media types.MediaSet, dryRun bool) (types.Status, error) {
	// 1. Navigate to the composer.
	w.log.Printf("navigating to composer...")
	if err := w.run(ctx,
		chromedp.Navigate(composerURL),
		chromedp.Sleep(3*time.Second),
	); err != nil {
		return "", fmt.Errorf("failed to open composer: %w", err)
	}

	// Session expiry between EnsureSession and now is possible; a redirect
	// to the login surface must not be misread as a UI failure.
	var url string
	if err := w.run(ctx, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("failed to read location: %w", err)
	}
	if strings.Contains(url, "login") || strings.Contains(url, "passport") {
		w.log.Printf("redirected to login surface, not logged in")
		w.shoot(ctx, "not_logged_in")
		return types.StatusNotLoggedIn, nil
	}
	w.shoot(ctx, "publish_page")

	// 2. Clear any blocking overlay and switch to the image-note tab.
	w.removePopCover(ctx)
	w.clickImageTab(ctx)
	w.shoot(ctx, "after_tab_click")

	// 3. Upload media. The title/body fields only render after an upload,
	// so this comes first.
	files, err := resolveMedia(media, w.defaultCover)
	if err != nil {
		w.log.Printf("no usable image: %v", err)
		w.shoot(ctx, "no_image")
		return types.StatusNoImage, nil
	}

	match, err := w.resolver.Resolve(ctx, locator.TargetUploadInput, w.patterns[locator.TargetUploadInput], fieldTimeout)
	if err != nil {
		w.log.Printf("upload control not found")
		w.shoot(ctx, "upload_failed")
		return types.StatusUploadFailed, nil
	}
	if err := w.run(ctx, chromedp.SetUploadFiles(match.Pattern.Selector, files, chromedp.ByQuery)); err != nil {
		w.log.Printf("attaching %d file(s) failed: %v", len(files), err)
		w.shoot(ctx, "upload_failed")
		return types.StatusUploadFailed, nil
	}
	w.log.Printf("attached %d image(s)", len(files))

	w.waitForPreviews(ctx, len(files))
	if err := w.run(ctx, chromedp.Sleep(2*time.Second)); err != nil {
		return "", err
	}
	w.shoot(ctx, "after_upload")

	// 4. Title and body. Absence of either field is logged, not fatal; the
	// composer tolerates partial metadata.
	w.fillTitle(ctx, rec.Title)
	bodyFilled := w.fillBody(ctx, rec.Body)

	// 5. Tags are typed inline at the end of the body, so they need the
	// body editor.
	if bodyFilled && len(rec.Tags) > 0 {
		if err := w.addTags(ctx, rec.Tags); err != nil {
			w.log.Printf("adding tags failed: %v", err)
		}
	}

	if err := w.run(ctx, chromedp.Sleep(time.Second)); err != nil {
		return "", err
	}
	w.shoot(ctx, "content_filled")

	// 6. Submit.
	if dryRun {
		w.log.Printf("[dry run] skipping publish button")
		return types.StatusDryRun, nil
	}

	if !w.clickSubmit(ctx) {
		w.log.Printf("no enabled publish button found")
		w.shoot(ctx, "publish_btn_not_found")
		return types.StatusPublishBtnNotFound, nil
	}

	// 7. Verify the outcome after a fixed settle delay.
	if err := w.run(ctx, chromedp.Sleep(settleDelay)); err != nil {
		return "", err
	}
	w.shoot(ctx, "after_publish")

	var pageText, finalURL string
	if err := w.run(ctx,
		chromedp.Text("body", &pageText, chromedp.ByQuery),
		chromedp.Location(&finalURL),
	); err != nil {
		return "", fmt.Errorf("failed to read outcome: %w", err)
	}

	status := classifyOutcome(pageText, finalURL)
	switch status {
	case types.StatusSuccess:
		w.log.Printf("publish confirmed")
	case types.StatusPossibleSuccess:
		w.log.Printf("page navigated away from composer, publish likely succeeded")
	default:
		w.log.Printf("no explicit success signal detected")
	}
	return status, nil
}

// resolveMedia substitutes the default cover for an empty media set. A
// missing default is a hard precondition failure.
func resolveMedia(media types.MediaSet, defaultCover string) ([]string, error) {
	if len(media) > 0 {
		return media, nil
	}
	if defaultCover != "" {
		if _, err := os.Stat(defaultCover); err == nil {
			return []string{defaultCover}, nil
		}
	}
	return nil, ErrNoDefaultCover
}

// removePopCover strips the modal overlay that sometimes blocks the
// composer. Best effort; absence is the normal case.
func (w *Workflow) removePopCover(ctx context.Context) {
	js := fmt.Sprintf(`document.querySelector(%q)?.remove()`, locator.PopCover)
	if err := w.run(ctx, chromedp.Evaluate(js, nil)); err != nil {
		w.log.Printf("overlay removal skipped: %v", err)
	}
}

// clickImageTab switches the composer to the image-note tab. The tab is
// found by its label text because its markup carries no stable hooks; a JS
// click avoids viewport constraints.
func (w *Workflow) clickImageTab(ctx context.Context) {
	js := `(() => {
		for (const el of document.querySelectorAll('span, div, a, li')) {
			if (el.textContent.trim() === '上传图文' && el.offsetParent !== null) {
				el.click();
				return true;
			}
		}
		return false;
	})()`

	var clicked bool
	if err := w.run(ctx, chromedp.Evaluate(js, &clicked)); err != nil {
		w.log.Printf("image tab click failed: %v", err)
		return
	}
	if !clicked {
		w.log.Printf("image tab not found, continuing")
		return
	}
	if err := w.run(ctx, chromedp.Sleep(2*time.Second)); err != nil {
		w.log.Printf("settling after tab switch failed: %v", err)
	}
}

// waitForPreviews polls for rendered preview images until their count covers
// the attached files. Exhaustion is a warning, not a failure: the workflow
// is optimistic about missing visual confirmation.
func (w *Workflow) waitForPreviews(ctx context.Context, want int) {
	js := fmt.Sprintf(`document.querySelectorAll(%q).length`, locator.PreviewImages)
	for i := 0; i < uploadPollMax; i++ {
		var n int
		if err := w.run(ctx, chromedp.Evaluate(js, &n)); err == nil && n >= want {
			w.log.Printf("upload complete, %d preview(s) rendered", n)
			return
		}
		if err := w.run(ctx, chromedp.Sleep(uploadPollInterval)); err != nil {
			return
		}
	}
	w.log.Printf("upload confirmation timed out, continuing")
}

// fillTitle populates the first resolvable title field candidate.
func (w *Workflow) fillTitle(ctx context.Context, title string) {
	match, err := w.resolver.Resolve(ctx, locator.TargetTitleField, w.patterns[locator.TargetTitleField], fieldTimeout)
	if err != nil {
		w.log.Printf("title field not found, continuing")
		return
	}

	sel := match.Pattern.Selector
	if err := w.run(ctx,
		chromedp.Click(sel, chromedp.ByQuery),
		chromedp.SendKeys(sel, title, chromedp.ByQuery),
		chromedp.Sleep(500*time.Millisecond),
	); err != nil {
		w.log.Printf("filling title failed: %v", err)
		return
	}
	w.log.Printf("title filled (selector: %s)", sel)
}

// fillBody populates the first resolvable body editor. Plain inputs accept
// direct key injection; rich-text editable regions reject it, so those get
// select-all, delete, then line-by-line simulated typing.
func (w *Workflow) fillBody(ctx context.Context, body string) bool {
	match, err := w.resolver.Resolve(ctx, locator.TargetBodyEditor, w.patterns[locator.TargetBodyEditor], fieldTimeout)
	if err != nil {
		w.log.Printf("body editor not found, continuing")
		return false
	}

	sel := match.Pattern.Selector
	if err := w.run(ctx, chromedp.Click(sel, chromedp.ByQuery)); err != nil {
		w.log.Printf("focusing body editor failed: %v", err)
		return false
	}

	var editable bool
	probeJS := fmt.Sprintf(`(() => { const el = document.querySelector(%q); return !!el && el.isContentEditable; })()`, sel)
	if err := w.run(ctx, chromedp.Evaluate(probeJS, &editable)); err != nil {
		w.log.Printf("body editor probe failed: %v", err)
		return false
	}

	if !editable {
		if err := w.run(ctx, chromedp.SendKeys(sel, body, chromedp.ByQuery)); err != nil {
			w.log.Printf("filling body failed: %v", err)
			return false
		}
		w.log.Printf("body filled (selector: %s)", sel)
		return true
	}

	if err := w.typeIntoEditor(ctx, body); err != nil {
		w.log.Printf("typing body failed: %v", err)
		return false
	}
	w.log.Printf("body typed (selector: %s)", sel)
	return true
}

// typeIntoEditor clears the focused rich-text region and emits the body line
// by line with human-scale delays.
func (w *Workflow) typeIntoEditor(ctx context.Context, body string) error {
	if err := w.run(ctx,
		chromedp.Evaluate(`document.execCommand('selectAll', false, null); document.execCommand('delete', false, null);`, nil),
		chromedp.Sleep(200*time.Millisecond),
	); err != nil {
		return err
	}

	for _, line := range strings.Split(body, "\n") {
		if err := w.typeText(ctx, line, keyDelay); err != nil {
			return err
		}
		if err := w.run(ctx,
			chromedp.KeyEvent("\r"),
			chromedp.Sleep(lineDelay),
		); err != nil {
			return err
		}
	}
	return nil
}

// typeText emits text one rune at a time with a fixed inter-keystroke delay.
// Slow typing keeps reactive UIs (and anti-automation heuristics) happy.
func (w *Workflow) typeText(ctx context.Context, text string, delay time.Duration) error {
	for _, r := range text {
		if err := w.run(ctx,
			chromedp.KeyEvent(string(r)),
			chromedp.Sleep(delay),
		); err != nil {
			return err
		}
	}
	return nil
}

// clickSubmit tries the submit button candidates in order, skipping any that
// report themselves disabled, and clicks the first enabled one.
func (w *Workflow) clickSubmit(ctx context.Context) bool {
	for _, p := range w.patterns[locator.TargetSubmitButton] {
		if _, err := w.resolver.Resolve(ctx, locator.TargetSubmitButton, []locator.Pattern{p}, fieldTimeout); err != nil {
			continue
		}

		var disabled string
		var hasAttr bool
		if err := w.run(ctx, chromedp.AttributeValue(p.Selector, "disabled", &disabled, &hasAttr, chromedp.ByQuery)); err == nil && hasAttr {
			w.log.Printf("publish button disabled (selector: %s), skipping", p.Selector)
			continue
		}

		w.shoot(ctx, "before_publish")
		if err := w.run(ctx, chromedp.Click(p.Selector, chromedp.ByQuery)); err != nil {
			w.log.Printf("clicking publish button failed (selector: %s): %v", p.Selector, err)
			continue
		}
		w.log.Printf("publish button clicked (selector: %s)", p.Selector)
		return true
	}
	return false
}

func (w *Workflow) shoot(ctx context.Context, name string) {
	browseropts.Screenshot(ctx, w.screenshotDir, name, w.log)
}
