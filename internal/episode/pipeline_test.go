package episode_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/podtalk/podtalk/internal/clips"
	"github.com/podtalk/podtalk/internal/clone"
	"github.com/podtalk/podtalk/internal/config"
	"github.com/podtalk/podtalk/internal/diarize"
	"github.com/podtalk/podtalk/internal/episode"
	"github.com/podtalk/podtalk/internal/session"
	"github.com/podtalk/podtalk/pkg/audio"
	"github.com/podtalk/podtalk/pkg/feed"
	"github.com/podtalk/podtalk/pkg/kv"
	mockdiarize "github.com/podtalk/podtalk/pkg/provider/diarize/mock"
	mockvoice "github.com/podtalk/podtalk/pkg/provider/voice/mock"
	"github.com/podtalk/podtalk/pkg/types"
)

// env is a fully wired setup pipeline over an httptest feed server and
// in-memory doubles.
type env struct {
	pipeline  *episode.Pipeline
	sess      *session.Context
	diarizer  *mockdiarize.Provider
	voices    *mockvoice.Provider
	downloads *atomic.Int32
}

func newEnv(t *testing.T, segments []types.Segment) *env {
	t.Helper()

	var downloads atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/enclosure.mp3", func(w http.ResponseWriter, r *http.Request) {
		downloads.Add(1)
		w.Write([]byte("fake mp3"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	mux.HandleFunc("/feed.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<rss><channel><title>The Show</title><item>
			<title>Episode One</title>
			<enclosure url="%s/enclosure.mp3" type="audio/mpeg"/>
		</item></channel></rss>`, srv.URL)
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"results":[{"collectionName":"The Show","feedUrl":"%s/feed.xml"}]}`, srv.URL)
	})

	feeds := feed.NewSource(feed.WithSearchURL(srv.URL + "/search"))

	// One minute of decoded audio, plenty for the clip windows below.
	decoder := func(ctx context.Context, path string) (audio.Buffer, error) {
		return audio.Buffer{
			Data:       make([]byte, 8000*2*60),
			SampleRate: 8000,
			Channels:   1,
		}, nil
	}

	diarizer := &mockdiarize.Provider{Segments: segments}
	voices := &mockvoice.Provider{}
	sess := session.New()

	cfg := config.EpisodeConfig{
		Show:           "The Show",
		Title:          "Episode One",
		AnalysisWindow: config.Duration(time.Minute),
		NumSpeakers:    2,
		DownloadDir:    t.TempDir(),
	}
	clipsCfg := config.ClipsConfig{
		MaxTotalDuration: config.Duration(5 * time.Minute),
		MaxTotalBytes:    11 << 20,
		BitrateKbps:      192,
		MergeGap:         config.Duration(2 * time.Second),
		MinBlock:         config.Duration(5 * time.Second),
	}

	p := episode.NewPipeline(
		feeds,
		diarize.New(diarizer, diarize.NewCache(kv.NewMemory(), nil)),
		clips.NewSelector(clipsCfg),
		clone.NewManager(voices),
		sess,
		cfg,
		episode.WithDecoder(decoder),
	)
	return &env{pipeline: p, sess: sess, diarizer: diarizer, voices: voices, downloads: &downloads}
}

func TestSetup(t *testing.T) {
	t.Parallel()
	e := newEnv(t, []types.Segment{
		{SpeakerID: "speaker_0", Start: 0, End: 20 * time.Second, Text: "welcome"},
		{SpeakerID: "speaker_1", Start: 21 * time.Second, End: 40 * time.Second, Text: "thanks"},
	})

	if err := e.pipeline.Setup(context.Background()); err != nil {
		t.Fatalf("Setup: %v", err)
	}

	if got := e.sess.EpisodeKey(); got != "the-show/episode-one" {
		t.Errorf("episode key = %q", got)
	}
	if e.sess.Show() != "The Show" || e.sess.Title() != "Episode One" {
		t.Errorf("session show/title = %q/%q", e.sess.Show(), e.sess.Title())
	}

	cloned := e.sess.ClonedSpeakers()
	if len(cloned) != 2 {
		t.Fatalf("cloned %d speakers, want 2: %v", len(cloned), cloned)
	}
	if e.voices.CloneCallCount() != 2 {
		t.Errorf("Clone called %d times, want 2", e.voices.CloneCallCount())
	}
	if e.diarizer.CallCount() != 1 {
		t.Errorf("diarize called %d times, want 1", e.diarizer.CallCount())
	}
}

func TestSetup_ThinSpeakerSkipped(t *testing.T) {
	t.Parallel()
	// speaker_1 has 2s of speech, below the 5s minimum block.
	e := newEnv(t, []types.Segment{
		{SpeakerID: "speaker_0", Start: 0, End: 20 * time.Second, Text: "welcome"},
		{SpeakerID: "speaker_1", Start: 21 * time.Second, End: 23 * time.Second, Text: "hi"},
	})

	if err := e.pipeline.Setup(context.Background()); err != nil {
		t.Fatalf("Setup: %v", err)
	}

	cloned := e.sess.ClonedSpeakers()
	if len(cloned) != 1 || cloned[0] != "speaker_0" {
		t.Fatalf("cloned speakers = %v, want [speaker_0]", cloned)
	}
}

func TestSetup_NoCloneableSpeakerFails(t *testing.T) {
	t.Parallel()
	e := newEnv(t, []types.Segment{
		{SpeakerID: "speaker_0", Start: 0, End: 2 * time.Second, Text: "hi"},
	})

	err := e.pipeline.Setup(context.Background())
	if err == nil {
		t.Fatal("want error when no speaker can be cloned")
	}
	if !strings.Contains(err.Error(), "no speaker could be cloned") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSetup_ReusesDownloadAndCache(t *testing.T) {
	t.Parallel()
	e := newEnv(t, []types.Segment{
		{SpeakerID: "speaker_0", Start: 0, End: 20 * time.Second, Text: "welcome"},
	})

	if err := e.pipeline.Setup(context.Background()); err != nil {
		t.Fatalf("first Setup: %v", err)
	}
	if err := e.pipeline.Setup(context.Background()); err != nil {
		t.Fatalf("second Setup: %v", err)
	}

	if got := e.downloads.Load(); got != 1 {
		t.Errorf("enclosure downloaded %d times, want 1", got)
	}
	if got := e.diarizer.CallCount(); got != 1 {
		t.Errorf("diarize called %d times across two setups, want 1", got)
	}
	// The second run adopts the already-created voice instead of cloning
	// again.
	if got := e.voices.CloneCallCount(); got != 1 {
		t.Errorf("Clone called %d times across two setups, want 1", got)
	}
}
