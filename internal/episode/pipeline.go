// Package episode prepares an episode for voice interaction: fetch the
// audio, cut the analysis window, diarize it, select training clips, and
// ensure a voice clone per speaker.
//
// Setup is the slow path run once per episode; everything it produces
// lands in the session Context the talk loop reads from. A speaker whose
// clips or clone fail is skipped with a warning, so one thin-voiced guest
// does not sink the whole episode.
package episode

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"golang.org/x/sync/errgroup"

	"github.com/podtalk/podtalk/internal/clips"
	"github.com/podtalk/podtalk/internal/clone"
	"github.com/podtalk/podtalk/internal/config"
	"github.com/podtalk/podtalk/internal/diarize"
	"github.com/podtalk/podtalk/internal/session"
	"github.com/podtalk/podtalk/pkg/audio"
	"github.com/podtalk/podtalk/pkg/feed"
	"github.com/podtalk/podtalk/pkg/types"
)

// cloneConcurrency bounds parallel clone creation. Two keeps a typical
// co-hosted show fully parallel without hammering the provider.
const cloneConcurrency = 2

// DecodeFunc turns a downloaded enclosure file into PCM audio.
type DecodeFunc func(ctx context.Context, path string) (audio.Buffer, error)

// Pipeline runs episode setup end to end.
type Pipeline struct {
	feeds    *feed.Source
	diarizer *diarize.Diarizer
	selector *clips.Selector
	clones   *clone.Manager
	sess     *session.Context
	cfg      config.EpisodeConfig
	decode   DecodeFunc
	logger   *slog.Logger
}

// Option is a functional option for NewPipeline.
type Option func(*Pipeline)

// WithDecoder overrides the enclosure decoder. Tests inject a fake so
// setup runs without ffmpeg.
func WithDecoder(d DecodeFunc) Option {
	return func(p *Pipeline) {
		p.decode = d
	}
}

// WithLogger overrides the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = l
	}
}

// NewPipeline wires the setup pipeline.
func NewPipeline(feeds *feed.Source, diarizer *diarize.Diarizer, selector *clips.Selector, clones *clone.Manager, sess *session.Context, cfg config.EpisodeConfig, opts ...Option) *Pipeline {
	p := &Pipeline{
		feeds:    feeds,
		diarizer: diarizer,
		selector: selector,
		clones:   clones,
		sess:     sess,
		cfg:      cfg,
		decode:   FFmpegDecode,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Setup prepares the configured episode and leaves the session ready for
// talk turns. It returns an error when no speaker ends up with a usable
// voice, since the talk loop would have nobody to answer with.
func (p *Pipeline) Setup(ctx context.Context) error {
	ep, path, err := p.fetch(ctx)
	if err != nil {
		return err
	}

	buf, err := p.decode(ctx, path)
	if err != nil {
		return fmt.Errorf("episode: decode %s: %w", path, err)
	}

	window := audio.Slice(buf, 0, p.cfg.AnalysisWindow.Std())
	if window.Empty() {
		return fmt.Errorf("episode: %s decoded to no audio", path)
	}

	key := EpisodeKey(ep.ShowTitle, ep.Title)
	result, err := p.diarizer.Analyze(ctx, key, p.cfg.AnalysisWindow.Std(), audio.EncodeWAV(window))
	if err != nil {
		return fmt.Errorf("episode: %w", err)
	}

	p.sess.Init(key, ep.ShowTitle, ep.Title, result)

	if err := p.cloneSpeakers(ctx, result, window); err != nil {
		return err
	}

	cloned := p.sess.ClonedSpeakers()
	if len(cloned) == 0 {
		return fmt.Errorf("episode: no speaker could be cloned")
	}
	p.logger.Info("episode ready",
		"episode", key,
		"speakers", len(result.Speakers()),
		"cloned", len(cloned),
	)
	return nil
}

// fetch resolves the configured show and episode to a local audio file,
// downloading the enclosure unless a previous run already did.
func (p *Pipeline) fetch(ctx context.Context) (feed.Episode, string, error) {
	feedURL, err := p.feeds.FindFeed(ctx, p.cfg.Show)
	if err != nil {
		return feed.Episode{}, "", fmt.Errorf("episode: find feed for %q: %w", p.cfg.Show, err)
	}
	ep, err := p.feeds.FindEpisode(ctx, feedURL, p.cfg.Title)
	if err != nil {
		return feed.Episode{}, "", fmt.Errorf("episode: find episode %q: %w", p.cfg.Title, err)
	}
	p.logger.Info("episode resolved", "show", ep.ShowTitle, "title", ep.Title, "url", ep.AudioURL)

	dir := p.cfg.DownloadDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return feed.Episode{}, "", fmt.Errorf("episode: create download dir: %w", err)
	}
	path := filepath.Join(dir, slug(ep.ShowTitle)+"-"+slug(ep.Title)+enclosureExt(ep.AudioURL))

	if _, err := os.Stat(path); err == nil {
		p.logger.Info("episode audio already downloaded", "path", path)
		return ep, path, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return feed.Episode{}, "", fmt.Errorf("episode: create %s: %w", path, err)
	}
	defer f.Close()

	start := time.Now()
	if err := p.feeds.Download(ctx, ep.AudioURL, f); err != nil {
		os.Remove(path)
		return feed.Episode{}, "", fmt.Errorf("episode: download %s: %w", ep.AudioURL, err)
	}
	info, _ := f.Stat()
	var size int64
	if info != nil {
		size = info.Size()
	}
	p.logger.Info("episode audio downloaded",
		"path", path,
		"bytes", size,
		"elapsed", time.Since(start).Round(time.Second),
	)
	return ep, path, nil
}

// cloneSpeakers selects clips and ensures a clone for every diarized
// speaker, a few at a time. Per-speaker failures are logged and skipped.
func (p *Pipeline) cloneSpeakers(ctx context.Context, result types.DiarizationResult, window audio.Buffer) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cloneConcurrency)

	for _, speakerID := range result.Speakers() {
		g.Go(func() error {
			sel, err := p.selector.Select(speakerID, result.Segments)
			if err != nil {
				p.logger.Warn("skipping speaker: no usable clips", "speaker", speakerID, "error", err)
				return nil
			}
			profile, err := p.clones.Ensure(gctx, p.sess, sel, window)
			if err != nil {
				p.logger.Warn("skipping speaker: clone failed", "speaker", speakerID, "error", err)
				return nil
			}
			p.logger.Info("speaker voice ready",
				"speaker", speakerID,
				"voice_id", profile.CloneID,
				"selected", sel.TotalDuration,
			)
			return nil
		})
	}
	// Only a cancelled context surfaces here; speaker failures are skips.
	return g.Wait()
}

// EpisodeKey derives the stable cache/session key for one episode.
func EpisodeKey(show, title string) string {
	return slug(show) + "/" + slug(title)
}

// enclosureExt extracts the file extension from an enclosure URL,
// ignoring any query string. Defaults to ".mp3", the de facto podcast
// enclosure format.
func enclosureExt(audioURL string) string {
	u, err := url.Parse(audioURL)
	if err != nil {
		return ".mp3"
	}
	if ext := path.Ext(u.Path); ext != "" {
		return ext
	}
	return ".mp3"
}

// slug lowercases s and collapses runs of non-alphanumerics to single
// hyphens, producing filesystem- and key-safe names.
func slug(s string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastHyphen = false
		} else if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
