package harvest

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mmcdole/gofeed"
)

var (
	ErrURLFileNotFound = errors.New("URL list file not found")
	ErrEmptyURLList    = errors.New("no URLs to harvest")
)

// LoadURLList reads a newline-separated URL file. Blank lines and lines
// starting with # are skipped.
func LoadURLList(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrURLFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to read URL list: %w", err)
	}

	var urls []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, nil
}

// LoadURLsFromFeed pulls conversation links out of an RSS or Atom feed, for
// operators who maintain their share links as a feed.
func LoadURLsFromFeed(feedURL string) ([]string, error) {
	feed, err := gofeed.NewParser().ParseURL(feedURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	return feedLinks(feed), nil
}

// feedLinks extracts item links from a parsed feed. Duplicates are dropped;
// feed order is kept.
func feedLinks(feed *gofeed.Feed) []string {
	seen := map[string]bool{}
	var urls []string
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		link := strings.TrimSpace(item.Link)
		if link == "" || seen[link] {
			continue
		}
		seen[link] = true
		urls = append(urls, link)
	}
	return urls
}
