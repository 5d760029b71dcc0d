package locator

// Xiaohongshu DOM patterns, in priority order per target.
// These are isolated here because the site changes its DOM frequently;
// update these (or override them in the config file) when publishing breaks.

// Logical target names. Config selector overrides are keyed by these.
const (
	TargetLoginMarker     = "login_marker"
	TargetUploadInput     = "upload_input"
	TargetTitleField      = "title_field"
	TargetBodyEditor      = "body_editor"
	TargetTopicSuggestion = "topic_suggestion"
	TargetSubmitButton    = "submit_button"
)

// Selectors used outside the ordered-fallback mechanism.
const (
	// Counted while polling for upload completion.
	PreviewImages = `.img-preview-area .pr, .image-item, [class*="preview"] img`

	// Modal overlay that occasionally blocks the composer.
	PopCover = `div.d-popover`
)

// Defaults returns the built-in pattern lists. Callers may replace individual
// targets with config-supplied lists so markup drift is a config change, not
// a rebuild.
func Defaults() map[string][]Pattern {
	return map[string][]Pattern{
		// Sidebar element only rendered for an authenticated user.
		TargetLoginMarker: {
			{Selector: `.main-container .user .link-wrapper .channel`},
		},
		// The file input is usually hidden, so wait for attached, not visible.
		TargetUploadInput: {
			{Selector: `.upload-input`, State: StateAttached},
			{Selector: `input[type="file"]`, State: StateAttached},
		},
		TargetTitleField: {
			{Selector: `div.d-input input`},
			{Selector: `div.title-container input`},
			{Selector: `input[placeholder*="标题"]`},
			{Selector: `#title-input`},
		},
		TargetBodyEditor: {
			{Selector: `div.ql-editor`},
			{Selector: `[role="textbox"]`},
			{Selector: `div[contenteditable="true"]`},
		},
		TargetTopicSuggestion: {
			{Selector: `#creator-editor-topic-container .item`},
		},
		TargetSubmitButton: {
			{Selector: `.publish-page-publish-btn button.bg-red`},
			{Selector: `button.publishBtn`},
			{Selector: `button[class*="publish"]:not([disabled])`},
		},
	}
}

// Merge overlays config-supplied pattern lists onto the defaults. Targets
// absent from overrides keep their built-in list.
func Merge(overrides map[string][]Pattern) map[string][]Pattern {
	merged := Defaults()
	for target, patterns := range overrides {
		if len(patterns) > 0 {
			merged[target] = patterns
		}
	}
	return merged
}
