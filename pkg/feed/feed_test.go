package feed_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/podtalk/podtalk/pkg/feed"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:itunes="http://www.itunes.com/dtds/podcast-1.0.dtd">
  <channel>
    <title>Deep Dive</title>
    <item>
      <title>The Secret Life of Whales</title>
      <pubDate>Mon, 17 Aug 2026 06:00:00 +0000</pubDate>
      <itunes:duration>01:02:30</itunes:duration>
      <enclosure url="https://cdn.example.com/whales.mp3?tk=abc" type="audio/mpeg" length="1000"/>
    </item>
    <item>
      <title>Bonus: Newsletter Update</title>
      <pubDate>Fri, 14 Aug 2026 06:00:00 +0000</pubDate>
      <enclosure url="https://cdn.example.com/bonus.pdf" type="application/pdf" length="10"/>
    </item>
    <item>
      <title>Octopus Intelligence</title>
      <pubDate>Mon, 10 Aug 2026 06:00:00 +0000</pubDate>
      <itunes:duration>3600</itunes:duration>
      <enclosure url="https://cdn.example.com/octopus.mp3" type="audio/mpeg" length="1000"/>
    </item>
  </channel>
</rss>`

func newFeedServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/feed.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sampleRSS)
	})
	mux.HandleFunc("/whales.mp3", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("mp3-bytes"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("term") == "" {
			http.Error(w, "missing term", http.StatusBadRequest)
			return
		}
		fmt.Fprintf(w, `{"results":[
			{"collectionName":"Deep Dive Daily News","feedUrl":"%s/wrong.xml"},
			{"collectionName":"Deep Dive","feedUrl":"%s/feed.xml"},
			{"collectionName":"No Feed Show"}
		]}`, srv.URL, srv.URL)
	})
	return srv
}

func TestFindFeed(t *testing.T) {
	t.Parallel()
	srv := newFeedServer(t)
	src := feed.NewSource(feed.WithSearchURL(srv.URL + "/search"))

	got, err := src.FindFeed(context.Background(), "deep dive")
	if err != nil {
		t.Fatalf("FindFeed: %v", err)
	}
	if got != srv.URL+"/feed.xml" {
		t.Errorf("feed url = %q", got)
	}
}

func TestFindFeed_NoMatch(t *testing.T) {
	t.Parallel()
	srv := newFeedServer(t)
	src := feed.NewSource(feed.WithSearchURL(srv.URL + "/search"))

	_, err := src.FindFeed(context.Background(), "completely unrelated show about trains")
	if !errors.Is(err, feed.ErrNoMatch) {
		t.Fatalf("want ErrNoMatch, got %v", err)
	}
}

func TestFindEpisode_FuzzyTitle(t *testing.T) {
	t.Parallel()
	srv := newFeedServer(t)
	src := feed.NewSource()

	// Inexact title still matches.
	ep, err := src.FindEpisode(context.Background(), srv.URL+"/feed.xml", "secret life of whales")
	if err != nil {
		t.Fatalf("FindEpisode: %v", err)
	}
	if ep.Title != "The Secret Life of Whales" {
		t.Errorf("title = %q", ep.Title)
	}
	if ep.ShowTitle != "Deep Dive" {
		t.Errorf("show title = %q", ep.ShowTitle)
	}
	if ep.AudioURL != "https://cdn.example.com/whales.mp3?tk=abc" {
		t.Errorf("audio url = %q", ep.AudioURL)
	}
	if ep.Duration != time.Hour+2*time.Minute+30*time.Second {
		t.Errorf("duration = %s", ep.Duration)
	}
	if ep.Published.IsZero() {
		t.Error("published date not parsed")
	}
}

func TestFindEpisode_EmptyTitlePicksNewest(t *testing.T) {
	t.Parallel()
	srv := newFeedServer(t)
	src := feed.NewSource()

	ep, err := src.FindEpisode(context.Background(), srv.URL+"/feed.xml", "")
	if err != nil {
		t.Fatalf("FindEpisode: %v", err)
	}
	if ep.Title != "The Secret Life of Whales" {
		t.Errorf("newest episode = %q, want the first audio entry", ep.Title)
	}
}

func TestFindEpisode_SkipsNonAudioEnclosures(t *testing.T) {
	t.Parallel()
	srv := newFeedServer(t)
	src := feed.NewSource()

	// The PDF bonus item scores highest on title but has no audio.
	_, err := src.FindEpisode(context.Background(), srv.URL+"/feed.xml", "Bonus: Newsletter Update")
	if !errors.Is(err, feed.ErrNoMatch) {
		t.Fatalf("want ErrNoMatch for non-audio entry, got %v", err)
	}
}

func TestFindEpisode_SecondsOnlyDuration(t *testing.T) {
	t.Parallel()
	srv := newFeedServer(t)
	src := feed.NewSource()

	ep, err := src.FindEpisode(context.Background(), srv.URL+"/feed.xml", "Octopus Intelligence")
	if err != nil {
		t.Fatalf("FindEpisode: %v", err)
	}
	if ep.Duration != time.Hour {
		t.Errorf("duration = %s, want 1h from plain seconds", ep.Duration)
	}
}

func TestDownload(t *testing.T) {
	t.Parallel()
	srv := newFeedServer(t)
	src := feed.NewSource()

	var buf bytes.Buffer
	if err := src.Download(context.Background(), srv.URL+"/whales.mp3", &buf); err != nil {
		t.Fatalf("Download: %v", err)
	}
	if buf.String() != "mp3-bytes" {
		t.Errorf("downloaded %q", buf.String())
	}
}

func TestDownload_OutlivesRequestTimeout(t *testing.T) {
	t.Parallel()
	// An episode download streams far longer than the request timeout
	// used for search and feed calls; it must not be cut off mid-body.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("first-half-"))
		w.(http.Flusher).Flush()
		time.Sleep(150 * time.Millisecond)
		w.Write([]byte("second-half"))
	}))
	t.Cleanup(srv.Close)

	src := feed.NewSource(
		feed.WithHTTPClient(&http.Client{Timeout: 30 * time.Millisecond}),
	)

	var buf bytes.Buffer
	if err := src.Download(context.Background(), srv.URL+"/episode.mp3", &buf); err != nil {
		t.Fatalf("Download: %v", err)
	}
	if buf.String() != "first-half-second-half" {
		t.Errorf("downloaded %q, body was truncated", buf.String())
	}
}

func TestDownload_HTTPError(t *testing.T) {
	t.Parallel()
	srv := newFeedServer(t)
	src := feed.NewSource()

	var buf bytes.Buffer
	err := src.Download(context.Background(), srv.URL+"/missing.mp3", &buf)
	if err == nil {
		t.Fatal("want error for 404 enclosure")
	}
}
