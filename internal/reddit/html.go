package reddit

import (
	"fmt"
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// htmlToText extracts readable text from selftext_html. The API escapes the markup
// unless raw_json=1 was sent, so it is unescaped first.
func htmlToText(fragment string) (string, error) {
	if strings.Contains(fragment, "&lt;") {
		fragment = html.UnescapeString(fragment)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}
	doc.Find("script, style").Remove()

	var blocks []string
	doc.Find("p, li, pre, blockquote, h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		if s.ParentsFiltered("p, li, pre, blockquote").Length() > 0 {
			return
		}
		if text := cleanWhitespace(s.Text()); text != "" {
			blocks = append(blocks, text)
		}
	})
	if len(blocks) == 0 {
		return cleanWhitespace(doc.Text()), nil
	}
	return strings.Join(blocks, "\n"), nil
}

func cleanWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
