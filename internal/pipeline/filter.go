package pipeline

import (
	"strings"

	"github.com/jonathan/opportunity-miner/internal/types"
)

// FilterPosts keeps posts with more than minComments comments and, in recent mode,
// at least one keyword in the title or body (case-insensitive substring). Order is preserved.
func FilterPosts(posts []types.RawPost, mode Mode, keywords []string, minComments int) []types.RawPost {
	lowered := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			lowered = append(lowered, k)
		}
	}

	kept := make([]types.RawPost, 0, len(posts))
	for _, post := range posts {
		if post.NumComments <= minComments {
			continue
		}
		if mode == ModeRecent && !matchesAny(post, lowered) {
			continue
		}
		kept = append(kept, post)
	}
	return kept
}

func matchesAny(post types.RawPost, keywords []string) bool {
	title := strings.ToLower(post.Title)
	body := strings.ToLower(post.Body)
	for _, k := range keywords {
		if strings.Contains(title, k) || strings.Contains(body, k) {
			return true
		}
	}
	return false
}
