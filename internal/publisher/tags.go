package publisher

import (
	"context"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/wszrw123/xiaohongshu-automation/internal/locator"
)

// maxTags caps how many tags are typed into one note.
const maxTags = 10

const (
	tagKeyDelay     = 100 * time.Millisecond
	suggestionWait  = 2 * time.Second
	betweenTagsWait = 500 * time.Millisecond
)

// addTags types each tag inline at the end of the body: a '#' trigger, then
// the tag one character at a time so the suggestion dropdown can populate,
// then either the first suggestion or a terminating space. Best effort
// throughout; the caller logs and moves on if this fails.
func (w *Workflow) addTags(ctx context.Context, tags []string) error {
	match, err := w.resolver.Resolve(ctx, locator.TargetBodyEditor, w.patterns[locator.TargetBodyEditor], suggestionWait)
	if err != nil {
		w.log.Printf("editor not found, skipping tags")
		return nil
	}
	sel := match.Pattern.Selector

	// Put the caret at the very end of the body and open a fresh line.
	caretJS := `(() => {
		const el = document.querySelector(` + jsString(sel) + `);
		if (!el) return false;
		el.focus();
		const range = document.createRange();
		range.selectNodeContents(el);
		range.collapse(false);
		const selection = window.getSelection();
		selection.removeAllRanges();
		selection.addRange(range);
		return true;
	})()`

	var focused bool
	if err := w.run(ctx,
		chromedp.Click(sel, chromedp.ByQuery),
		chromedp.Evaluate(caretJS, &focused),
		chromedp.KeyEvent("\r"),
		chromedp.KeyEvent("\r"),
		chromedp.Sleep(betweenTagsWait),
	); err != nil {
		return err
	}

	added := 0
	for _, tag := range tags {
		if added >= maxTags {
			break
		}
		tag = strings.TrimLeft(tag, "#")
		if tag == "" {
			continue
		}

		if err := w.run(ctx,
			chromedp.KeyEvent("#"),
			chromedp.Sleep(200*time.Millisecond),
		); err != nil {
			return err
		}
		if err := w.typeText(ctx, tag, tagKeyDelay); err != nil {
			return err
		}
		if err := w.run(ctx, chromedp.Sleep(time.Second)); err != nil {
			return err
		}

		// Prefer the suggestion dropdown when it populated; otherwise a
		// space terminates the literal tag.
		if _, err := w.resolver.Resolve(ctx, locator.TargetTopicSuggestion, w.patterns[locator.TargetTopicSuggestion], suggestionWait); err == nil {
			suggestion := w.patterns[locator.TargetTopicSuggestion][0].Selector
			if err := w.run(ctx, chromedp.Click(suggestion, chromedp.ByQuery)); err == nil {
				w.log.Printf("tag suggestion selected: %s", tag)
			} else {
				w.log.Printf("clicking tag suggestion failed: %v", err)
			}
		} else {
			if err := w.run(ctx, chromedp.KeyEvent(" ")); err != nil {
				return err
			}
		}

		if err := w.run(ctx, chromedp.Sleep(betweenTagsWait)); err != nil {
			return err
		}
		added++
	}

	w.log.Printf("added %d tag(s)", added)
	return nil
}

// jsString quotes s as a JS string literal.
func jsString(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
}
