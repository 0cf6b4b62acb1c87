package reddit

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/jonathan/opportunity-miner/internal/types"
)

// CanonicalHost prefixes permalinks to form the deduplication URL.
const CanonicalHost = "https://www.reddit.com"

type listing struct {
	Kind string `json:"kind"`
	Data struct {
		After    *string `json:"after"`
		Children []thing `json:"children"`
	} `json:"data"`
}

type thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// submission covers both the Reddit listing and the archive search shapes.
type submission struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Title        string  `json:"title"`
	Selftext     string  `json:"selftext"`
	SelftextHTML string  `json:"selftext_html"`
	Score        int     `json:"score"`
	NumComments  int     `json:"num_comments"`
	Permalink    string  `json:"permalink"`
	FullLink     string  `json:"full_link"`
	URL          string  `json:"url"`
	CreatedUTC   float64 `json:"created_utc"`
}

type comment struct {
	Body string `json:"body"`
}

type archiveResponse struct {
	Data []submission `json:"data"`
}

func (s submission) canonicalURL() string {
	if s.Permalink != "" {
		if strings.HasPrefix(s.Permalink, "http") {
			return s.Permalink
		}
		return CanonicalHost + s.Permalink
	}
	if s.FullLink != "" {
		return s.FullLink
	}
	return s.URL
}

func (s submission) toRawPost() types.RawPost {
	body := s.Selftext
	if strings.TrimSpace(body) == "" && s.SelftextHTML != "" {
		if text, err := htmlToText(s.SelftextHTML); err == nil {
			body = text
		}
	}

	return types.RawPost{
		ID:          s.ID,
		Title:       s.Title,
		Body:        body,
		Score:       s.Score,
		NumComments: s.NumComments,
		URL:         s.canonicalURL(),
		CreatedAt:   time.Unix(int64(s.CreatedUTC), 0).UTC(),
	}
}
