package publisher

import (
	"strings"

	"github.com/wszrw123/xiaohongshu-automation/internal/types"
)

// successKeywords are the toast/banner texts the composer shows after a
// confirmed publish.
var successKeywords = []string{"发布成功", "笔记已发布", "已发布"}

// classifyOutcome maps post-submit page state to a status. Navigation away
// from the composer without an explicit confirmation is only a weak success
// signal, so it gets its own status.
func classifyOutcome(pageText, currentURL string) types.Status {
	for _, kw := range successKeywords {
		if strings.Contains(pageText, kw) {
			return types.StatusSuccess
		}
	}
	if !strings.Contains(currentURL, "publish") {
		return types.StatusPossibleSuccess
	}
	return types.StatusUncertain
}
