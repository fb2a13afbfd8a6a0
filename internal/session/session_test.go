package session_test

import (
	"slices"
	"testing"
	"time"

	"github.com/podtalk/podtalk/internal/session"
	"github.com/podtalk/podtalk/pkg/types"
)

func diarization() types.DiarizationResult {
	return types.DiarizationResult{
		EpisodeKey: "show/ep-1",
		Window:     20 * time.Minute,
		Segments: []types.Segment{
			{SpeakerID: "speaker_1", Start: 0, End: 10 * time.Second},
			{SpeakerID: "speaker_0", Start: 11 * time.Second, End: 30 * time.Second},
			{SpeakerID: "speaker_1", Start: 31 * time.Second, End: 40 * time.Second},
		},
	}
}

func TestInit(t *testing.T) {
	t.Parallel()
	sess := session.New()
	sess.Init("show/ep-1", "The Show", "Episode One", diarization())

	if sess.EpisodeKey() != "show/ep-1" {
		t.Errorf("episode key = %q", sess.EpisodeKey())
	}
	if sess.Show() != "The Show" || sess.Title() != "Episode One" {
		t.Errorf("show/title = %q/%q", sess.Show(), sess.Title())
	}
	if len(sess.Diarization().Segments) != 3 {
		t.Errorf("diarization has %d segments", len(sess.Diarization().Segments))
	}
}

func TestInit_ClearsPreviousEpisode(t *testing.T) {
	t.Parallel()
	sess := session.New()
	sess.Init("show/ep-1", "The Show", "Episode One", diarization())
	sess.SetProfile(types.SpeakerProfile{SpeakerID: "speaker_0", CloneID: "v1"})
	sess.SetPlayback(types.PlaybackStatus{TrackID: "t1"})

	sess.Init("show/ep-2", "The Show", "Episode Two", diarization())

	if _, ok := sess.Profile("speaker_0"); ok {
		t.Error("profile survived re-Init")
	}
	status, at := sess.Playback()
	if status.TrackID != "" || !at.IsZero() {
		t.Error("playback snapshot survived re-Init")
	}
}

func TestClonedSpeakers_FirstAppearanceOrder(t *testing.T) {
	t.Parallel()
	sess := session.New()
	sess.Init("show/ep-1", "The Show", "Episode One", diarization())

	if got := sess.ClonedSpeakers(); got != nil {
		t.Errorf("cloned speakers before any profiles = %v", got)
	}

	// speaker_0 is set first, but speaker_1 appears first in the
	// diarization and must come first.
	sess.SetProfile(types.SpeakerProfile{SpeakerID: "speaker_0", CloneID: "v0"})
	sess.SetProfile(types.SpeakerProfile{SpeakerID: "speaker_1", CloneID: "v1"})

	got := sess.ClonedSpeakers()
	if !slices.Equal(got, []string{"speaker_1", "speaker_0"}) {
		t.Errorf("cloned speakers = %v, want [speaker_1 speaker_0]", got)
	}
}

func TestClonedSpeakers_SkipsUncloned(t *testing.T) {
	t.Parallel()
	sess := session.New()
	sess.Init("show/ep-1", "The Show", "Episode One", diarization())

	// A profile without a clone ID is not usable for synthesis.
	sess.SetProfile(types.SpeakerProfile{SpeakerID: "speaker_1"})
	sess.SetProfile(types.SpeakerProfile{SpeakerID: "speaker_0", CloneID: "v0"})

	got := sess.ClonedSpeakers()
	if !slices.Equal(got, []string{"speaker_0"}) {
		t.Errorf("cloned speakers = %v, want [speaker_0]", got)
	}
}

func TestProfiles_ReturnsCopy(t *testing.T) {
	t.Parallel()
	sess := session.New()
	sess.Init("show/ep-1", "The Show", "Episode One", diarization())
	sess.SetProfile(types.SpeakerProfile{SpeakerID: "speaker_0", CloneID: "v0"})

	profiles := sess.Profiles()
	delete(profiles, "speaker_0")

	if _, ok := sess.Profile("speaker_0"); !ok {
		t.Error("mutating the returned map changed session state")
	}
}
