package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/jonathan/opportunity-miner/internal/types"
	"go.uber.org/zap"
)

// FetchRecent returns one page of the subreddit's newest submissions and the cursor for the next page.
// An empty cursor means the listing is exhausted.
func (c *Client) FetchRecent(ctx context.Context, subreddit string, pageSize int, cursor string) ([]types.RawPost, string, error) {
	query := url.Values{
		"limit":    {strconv.Itoa(pageSize)},
		"raw_json": {"1"},
	}
	if cursor != "" {
		query.Set("after", cursor)
	}

	var page listing
	path := "/r/" + url.PathEscape(subreddit) + "/new"
	if err := c.getAPI(ctx, "fetch recent", path, query, &page); err != nil {
		return nil, "", err
	}

	posts := make([]types.RawPost, 0, len(page.Data.Children))
	for _, child := range page.Data.Children {
		if child.Kind != "t3" {
			continue
		}
		var s submission
		if err := json.Unmarshal(child.Data, &s); err != nil {
			c.logger.Warn("reddit: skipping undecodable submission", zap.Error(err))
			continue
		}
		posts = append(posts, s.toRawPost())
	}

	next := ""
	if page.Data.After != nil {
		next = *page.Data.After
	}
	return posts, next, nil
}

// FetchHistorical searches the archive for submissions matching any keyword inside the window,
// highest score first. Both window days are inclusive.
func (c *Client) FetchHistorical(ctx context.Context, subreddit string, keywords []string, window types.DateWindow, limit int) ([]types.RawPost, error) {
	if c.opts.HistoricalURL == "" {
		return nil, &Error{Op: "fetch historical", Kind: KindInvalidRequest, Message: "historical URL is not configured"}
	}

	start, endExclusive, err := window.Parse()
	if err != nil {
		return nil, &Error{Op: "fetch historical", Kind: KindInvalidRequest, Message: "invalid date window", Cause: err}
	}

	query := url.Values{
		"subreddit": {subreddit},
		"after":     {strconv.FormatInt(start.Unix(), 10)},
		"before":    {strconv.FormatInt(endExclusive.Unix(), 10)},
		"size":      {strconv.Itoa(limit)},
		"sort":      {"desc"},
		"sort_type": {"score"},
	}
	if q := strings.Join(keywords, "|"); q != "" {
		query.Set("q", q)
	}

	var resp archiveResponse
	if err := c.getPublic(ctx, "fetch historical", c.opts.HistoricalURL, query, &resp); err != nil {
		return nil, err
	}

	posts := make([]types.RawPost, 0, len(resp.Data))
	for _, s := range resp.Data {
		posts = append(posts, s.toRawPost())
	}
	return posts, nil
}

// FetchTopComments returns the bodies of up to limit top-level comments, best first.
func (c *Client) FetchTopComments(ctx context.Context, postID string, limit int) ([]string, error) {
	postID = strings.TrimPrefix(postID, "t3_")
	if postID == "" {
		return nil, &Error{Op: "fetch comments", Kind: KindInvalidRequest, Message: "post ID is required"}
	}

	query := url.Values{
		"sort":     {"top"},
		"limit":    {strconv.Itoa(limit)},
		"depth":    {"1"},
		"raw_json": {"1"},
	}

	// The response is [submission listing, comment listing]
	var pages []listing
	if err := c.getAPI(ctx, "fetch comments", "/comments/"+url.PathEscape(postID), query, &pages); err != nil {
		return nil, err
	}
	if len(pages) < 2 {
		return nil, &Error{Op: "fetch comments", Kind: KindDecode, Message: fmt.Sprintf("expected 2 listings, got %d", len(pages))}
	}

	comments := make([]string, 0, limit)
	for _, child := range pages[1].Data.Children {
		if len(comments) >= limit {
			break
		}
		if child.Kind != "t1" {
			continue
		}
		var cm comment
		if err := json.Unmarshal(child.Data, &cm); err != nil {
			continue
		}
		if body := strings.TrimSpace(cm.Body); body != "" && body != "[deleted]" && body != "[removed]" {
			comments = append(comments, body)
		}
	}
	return comments, nil
}
