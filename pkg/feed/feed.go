// Package feed locates and downloads podcast episodes via RSS.
//
// Resolution happens in three steps: the iTunes Search API maps a show
// name to its RSS feed URL, the feed is parsed for episode entries, and
// the best-matching entry's audio enclosure is downloaded. Title matching
// is fuzzy (Jaro-Winkler) because users rarely type titles exactly.
package feed

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/antzucaro/matchr"

	"github.com/podtalk/podtalk/pkg/types"
)

const (
	itunesSearchURL = "https://itunes.apple.com/search"

	// Minimum Jaro-Winkler similarity to accept a fuzzy title match.
	minShowScore    = 0.85
	minEpisodeScore = 0.75
)

// ErrNoMatch is returned when no show or episode scores above the match
// threshold.
var ErrNoMatch = errors.New("feed: no match")

// Episode is a resolved feed entry.
type Episode struct {
	// Title is the entry's title as published in the feed.
	Title string

	// ShowTitle is the feed's channel title.
	ShowTitle string

	// AudioURL is the enclosure URL for the episode audio.
	AudioURL string

	// Published is the entry's publication date, zero if unparsable.
	Published time.Time

	// Duration is the iTunes duration tag, zero if absent.
	Duration time.Duration
}

// Source resolves show names to feeds and episodes to audio.
type Source struct {
	httpClient     *http.Client
	downloadClient *http.Client
	searchURL      string
}

// Option is a functional option for Source.
type Option func(*Source)

// WithHTTPClient overrides the HTTP client used for search and feed
// requests.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Source) {
		s.httpClient = c
	}
}

// WithDownloadClient overrides the HTTP client used for enclosure
// downloads.
func WithDownloadClient(c *http.Client) Option {
	return func(s *Source) {
		s.downloadClient = c
	}
}

// WithSearchURL overrides the iTunes search endpoint, used by tests.
func WithSearchURL(u string) Option {
	return func(s *Source) {
		s.searchURL = u
	}
}

// NewSource creates a feed Source.
func NewSource(opts ...Option) *Source {
	s := &Source{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		// Enclosures are tens of megabytes and stream for minutes, so
		// the download client carries no whole-request timeout.
		// Cancellation comes from ctx; the header timeout still catches
		// servers that accept the connection and go silent.
		downloadClient: &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				ResponseHeaderTimeout: 30 * time.Second,
			},
		},
		searchURL: itunesSearchURL,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// itunesResult is one entry of the iTunes Search API response.
type itunesResult struct {
	CollectionName string `json:"collectionName"`
	FeedURL        string `json:"feedUrl"`
}

// FindFeed resolves a show name to its RSS feed URL via the iTunes
// Search API, picking the highest-scoring name match.
func (s *Source) FindFeed(ctx context.Context, showName string) (string, error) {
	q := url.Values{
		"term":   {showName},
		"media":  {"podcast"},
		"entity": {"podcast"},
		"limit":  {"10"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.searchURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("feed: create search request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", &types.ServiceError{Service: "itunes", Op: "search", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", &types.ServiceError{Service: "itunes", Op: "search", StatusCode: resp.StatusCode, Err: errors.New("unexpected status")}
	}

	var sr struct {
		Results []itunesResult `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", &types.ServiceError{Service: "itunes", Op: "search", Err: fmt.Errorf("decode response: %w", err)}
	}

	bestURL, bestScore := "", 0.0
	for _, r := range sr.Results {
		if r.FeedURL == "" {
			continue
		}
		score := similarity(showName, r.CollectionName)
		if score > bestScore {
			bestScore = score
			bestURL = r.FeedURL
		}
	}
	if bestURL == "" || bestScore < minShowScore {
		return "", fmt.Errorf("%w: show %q", ErrNoMatch, showName)
	}
	return bestURL, nil
}

// rss mirrors the subset of the RSS 2.0 + iTunes namespace we consume.
type rss struct {
	Channel struct {
		Title string    `xml:"title"`
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title     string `xml:"title"`
	PubDate   string `xml:"pubDate"`
	Duration  string `xml:"duration"`
	Enclosure struct {
		URL  string `xml:"url,attr"`
		Type string `xml:"type,attr"`
	} `xml:"enclosure"`
}

// FindEpisode fetches the feed and returns the entry whose title best
// matches episodeTitle. An empty episodeTitle returns the newest entry
// with an audio enclosure.
func (s *Source) FindEpisode(ctx context.Context, feedURL, episodeTitle string) (Episode, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return Episode{}, fmt.Errorf("feed: create feed request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return Episode{}, &types.ServiceError{Service: "rss", Op: "fetch feed", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Episode{}, &types.ServiceError{Service: "rss", Op: "fetch feed", StatusCode: resp.StatusCode, Err: errors.New("unexpected status")}
	}

	var doc rss
	if err := xml.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return Episode{}, &types.ServiceError{Service: "rss", Op: "fetch feed", Err: fmt.Errorf("parse feed: %w", err)}
	}

	var best *rssItem
	bestScore := 0.0
	for i := range doc.Channel.Items {
		item := &doc.Channel.Items[i]
		if !strings.HasPrefix(item.Enclosure.Type, "audio/") || item.Enclosure.URL == "" {
			continue
		}
		if episodeTitle == "" {
			// Feeds list newest first.
			best = item
			break
		}
		score := similarity(episodeTitle, item.Title)
		if score > bestScore {
			bestScore = score
			best = item
		}
	}
	if best == nil || (episodeTitle != "" && bestScore < minEpisodeScore) {
		return Episode{}, fmt.Errorf("%w: episode %q", ErrNoMatch, episodeTitle)
	}

	return Episode{
		Title:     best.Title,
		ShowTitle: doc.Channel.Title,
		AudioURL:  best.Enclosure.URL,
		Published: parsePubDate(best.PubDate),
		Duration:  parseItunesDuration(best.Duration),
	}, nil
}

// Download fetches the episode audio and streams it to w.
func (s *Source) Download(ctx context.Context, audioURL string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, audioURL, nil)
	if err != nil {
		return fmt.Errorf("feed: create download request: %w", err)
	}

	resp, err := s.downloadClient.Do(req)
	if err != nil {
		return &types.ServiceError{Service: "rss", Op: "download", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &types.ServiceError{Service: "rss", Op: "download", StatusCode: resp.StatusCode, Err: errors.New("unexpected status")}
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return &types.ServiceError{Service: "rss", Op: "download", Err: err}
	}
	return nil
}

// similarity scores two titles in [0, 1], ignoring case.
func similarity(a, b string) float64 {
	return matchr.JaroWinkler(strings.ToLower(a), strings.ToLower(b), false)
}

// parsePubDate tries the date layouts seen in podcast feeds.
func parsePubDate(s string) time.Time {
	for _, layout := range []string{time.RFC1123Z, time.RFC1123, time.RFC822Z, time.RFC822} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// parseItunesDuration handles both "HH:MM:SS" style and plain seconds.
func parseItunesDuration(s string) time.Duration {
	if s == "" {
		return 0
	}
	parts := strings.Split(s, ":")
	total := 0
	for _, p := range parts {
		n := 0
		for _, c := range p {
			if c < '0' || c > '9' {
				return 0
			}
			n = n*10 + int(c-'0')
		}
		total = total*60 + n
	}
	return time.Duration(total) * time.Second
}
