package talk_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/podtalk/podtalk/internal/config"
	"github.com/podtalk/podtalk/internal/session"
	"github.com/podtalk/podtalk/internal/talk"
	"github.com/podtalk/podtalk/pkg/audio"
	mockaudio "github.com/podtalk/podtalk/pkg/audio/mock"
	mockllm "github.com/podtalk/podtalk/pkg/provider/llm/mock"
	mockplayback "github.com/podtalk/podtalk/pkg/provider/playback/mock"
	mocktranscribe "github.com/podtalk/podtalk/pkg/provider/transcribe/mock"
	mockvoice "github.com/podtalk/podtalk/pkg/provider/voice/mock"
	"github.com/podtalk/podtalk/pkg/types"
)

// fixture bundles the mocks behind one talk session.
type fixture struct {
	playback    *mockplayback.Controller
	recorder    *mockaudio.Recorder
	transcriber *mocktranscribe.Provider
	llm         *mockllm.Provider
	voice       *mockvoice.Provider
	player      *mockaudio.Player
	sess        *session.Context
	talk        *talk.Session
}

func testConfig() config.TalkConfig {
	return config.TalkConfig{
		CaptureDuration:   config.Duration(50 * time.Millisecond),
		TranscribeTimeout: config.Duration(time.Second),
		GenerateTimeout:   config.Duration(time.Second),
		SynthesizeTimeout: config.Duration(time.Second),
		PlayTimeout:       config.Duration(time.Second),
		ContextWindow:     config.Duration(time.Minute),
		SampleRate:        16000,
	}
}

func newFixture(opts ...talk.Option) *fixture {
	f := &fixture{
		playback: &mockplayback.Controller{
			StatusResult: types.PlaybackStatus{
				Playing:   true,
				TrackID:   "track-1",
				TrackName: "Episode One",
				ShowName:  "The Show",
				Position:  5 * time.Minute,
				DeviceID:  "device-1",
			},
		},
		recorder: &mockaudio.Recorder{
			RecordResult: audio.Buffer{Data: []byte{1, 2, 3, 4}, SampleRate: 16000, Channels: 1},
		},
		transcriber: &mocktranscribe.Provider{Text: "what did you just say about bees?"},
		llm:         &mockllm.Provider{},
		voice: &mockvoice.Provider{
			SynthesizeResult: audio.Buffer{Data: []byte{9, 9}, SampleRate: 22050, Channels: 1},
		},
		player: &mockaudio.Player{},
		sess:   session.New(),
	}

	f.sess.Init("the-show/ep-1", "The Show", "Episode One", types.DiarizationResult{
		EpisodeKey: "the-show/ep-1",
		Window:     20 * time.Minute,
		Segments: []types.Segment{
			{SpeakerID: "speaker_0", Start: 4 * time.Minute, End: 6 * time.Minute, Text: "bees are fascinating"},
		},
	})
	f.sess.SetProfile(types.SpeakerProfile{
		SpeakerID:   "speaker_0",
		DisplayName: "The Show - speaker_0",
		CloneID:     "voice-1",
	})

	responder := talk.NewResponder(f.llm)
	f.talk = talk.New(f.sess, talk.Pipeline{
		Playback:    f.playback,
		Recorder:    f.recorder,
		Transcriber: f.transcriber,
		Responder:   responder,
		Voice:       f.voice,
		Player:      f.player,
	}, testConfig(), opts...)
	return f
}

func TestTrigger_SuccessfulTurn(t *testing.T) {
	t.Parallel()
	f := newFixture()

	turn, err := f.talk.Trigger(context.Background())
	if err != nil {
		t.Fatalf("Trigger: %v", err)
	}

	if f.playback.CallCountPause != 1 {
		t.Errorf("pause called %d times, want 1", f.playback.CallCountPause)
	}
	if got := f.playback.CallCountResume(); got != 1 {
		t.Errorf("resume called %d times, want 1", got)
	}
	if f.playback.ResumedDeviceIDs[0] != "device-1" {
		t.Errorf("resumed on device %q, want device-1", f.playback.ResumedDeviceIDs[0])
	}
	if turn.Question != "what did you just say about bees?" {
		t.Errorf("question = %q", turn.Question)
	}
	if turn.Speaker != "speaker_0" {
		t.Errorf("speaker = %q, want speaker_0", turn.Speaker)
	}
	if turn.Reply == "" {
		t.Error("turn has no reply")
	}
	if f.player.CallCount() != 1 {
		t.Errorf("player called %d times, want 1", f.player.CallCount())
	}
	if f.voice.SynthesizeCalls[0].VoiceID != "voice-1" {
		t.Errorf("synthesized with voice %q, want voice-1", f.voice.SynthesizeCalls[0].VoiceID)
	}
	if got := f.talk.State(); got != talk.StateIdle {
		t.Errorf("final state = %v, want idle", got)
	}
}

func TestTrigger_GenerateFailureResumesOnce(t *testing.T) {
	t.Parallel()
	f := newFixture()
	f.llm.Err = errors.New("model overloaded")

	_, err := f.talk.Trigger(context.Background())
	if err == nil {
		t.Fatal("want error when generation fails")
	}
	if !strings.Contains(err.Error(), "generating") {
		t.Errorf("error should cite the generating stage, got: %v", err)
	}
	if got := f.playback.CallCountResume(); got != 1 {
		t.Errorf("resume called %d times, want exactly 1", got)
	}
	if f.player.CallCount() != 0 {
		t.Error("player must not run after a generation failure")
	}
	if got := f.talk.State(); got != talk.StateIdle {
		t.Errorf("final state = %v, want idle", got)
	}
}

func TestTrigger_PauseFailureAbortsWithoutResume(t *testing.T) {
	t.Parallel()
	f := newFixture()
	f.playback.PauseError = errors.New("no active device")

	_, err := f.talk.Trigger(context.Background())
	if err == nil {
		t.Fatal("want error when pause fails")
	}
	if got := f.playback.CallCountResume(); got != 0 {
		t.Errorf("resume called %d times after failed pause, want 0", got)
	}
	if f.recorder.CallCount() != 0 {
		t.Error("capture must not start when pause failed")
	}
	if got := f.talk.State(); got != talk.StateIdle {
		t.Errorf("final state = %v, want idle", got)
	}
}

func TestTrigger_PlayFailureResumesOnce(t *testing.T) {
	t.Parallel()
	f := newFixture()
	f.player.PlayError = errors.New("device busy")

	_, err := f.talk.Trigger(context.Background())
	if err == nil {
		t.Fatal("want error when playback of the reply fails")
	}
	if !strings.Contains(err.Error(), "playing") {
		t.Errorf("error should cite the playing stage, got: %v", err)
	}
	if got := f.playback.CallCountResume(); got != 1 {
		t.Errorf("resume called %d times, want exactly 1", got)
	}
}

func TestTrigger_EmptyTranscriptEndsTurnEarly(t *testing.T) {
	t.Parallel()
	f := newFixture()
	f.transcriber.Text = "   "

	turn, err := f.talk.Trigger(context.Background())
	if err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if turn.Question != "" {
		t.Errorf("question = %q, want empty", turn.Question)
	}
	if f.llm.CallCount() != 0 {
		t.Error("generation must not run without a question")
	}
	if got := f.playback.CallCountResume(); got != 1 {
		t.Errorf("resume called %d times, want 1", got)
	}
}

func TestTrigger_NoClonedVoices(t *testing.T) {
	t.Parallel()
	f := newFixture()
	f.sess.Init("the-show/ep-1", "The Show", "Episode One", types.DiarizationResult{})

	_, err := f.talk.Trigger(context.Background())
	if !errors.Is(err, talk.ErrNoVoices) {
		t.Fatalf("want ErrNoVoices, got %v", err)
	}
	if got := f.playback.CallCountResume(); got != 1 {
		t.Errorf("resume called %d times, want 1", got)
	}
}

// blockingTranscriber parks the turn inside the transcribing stage until
// released, so a second trigger can race against it.
type blockingTranscriber struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingTranscriber) Transcribe(ctx context.Context, _ audio.Buffer) (string, error) {
	b.once.Do(func() { close(b.entered) })
	select {
	case <-b.release:
		return "done waiting", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestTrigger_RejectedWhileBusy(t *testing.T) {
	t.Parallel()
	f := newFixture()
	blocker := &blockingTranscriber{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	responder := talk.NewResponder(f.llm)
	busy := talk.New(f.sess, talk.Pipeline{
		Playback:    f.playback,
		Recorder:    f.recorder,
		Transcriber: blocker,
		Responder:   responder,
		Voice:       f.voice,
		Player:      f.player,
	}, testConfig())

	done := make(chan error, 1)
	go func() {
		_, err := busy.Trigger(context.Background())
		done <- err
	}()
	<-blocker.entered

	if _, err := busy.Trigger(context.Background()); !errors.Is(err, talk.ErrBusy) {
		t.Errorf("second trigger: want ErrBusy, got %v", err)
	}

	close(blocker.release)
	if err := <-done; err != nil {
		t.Fatalf("first trigger: %v", err)
	}
	if got := f.playback.CallCountResume(); got != 1 {
		t.Errorf("resume called %d times across both triggers, want 1", got)
	}
}

func TestTrigger_RecordsStageTimings(t *testing.T) {
	t.Parallel()
	f := newFixture()

	turn, err := f.talk.Trigger(context.Background())
	if err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	for _, stage := range []string{"capturing", "transcribing", "generating", "synthesizing", "playing"} {
		if _, ok := turn.Timings[stage]; !ok {
			t.Errorf("missing timing for stage %s", stage)
		}
	}
	if turn.Position != 5*time.Minute {
		t.Errorf("position = %v, want 5m", turn.Position)
	}
}
