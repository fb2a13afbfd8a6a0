package talk_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/podtalk/podtalk/internal/session"
	"github.com/podtalk/podtalk/internal/talk"
	"github.com/podtalk/podtalk/pkg/provider/llm"
	mockllm "github.com/podtalk/podtalk/pkg/provider/llm/mock"
	"github.com/podtalk/podtalk/pkg/types"
)

func promptSession() *session.Context {
	sess := session.New()
	sess.Init("deep-dive/whales", "Deep Dive", "The Secret Life of Whales", types.DiarizationResult{
		EpisodeKey: "deep-dive/whales",
		Window:     20 * time.Minute,
		Segments: []types.Segment{
			{SpeakerID: "speaker_0", Start: 4 * time.Minute, End: 5 * time.Minute, Text: "sperm whales dive for an hour"},
			{SpeakerID: "speaker_1", Start: 5 * time.Minute, End: 6 * time.Minute, Text: "that is longer than any submarine drill"},
			{SpeakerID: "speaker_0", Start: 15 * time.Minute, End: 16 * time.Minute, Text: "way outside the context window"},
		},
	})
	return sess
}

func TestResponder_PromptCarriesContext(t *testing.T) {
	t.Parallel()
	provider := &mockllm.Provider{
		Response: &llm.CompletionResponse{Content: "Great question! They hold their breath."},
	}
	r := talk.NewResponder(provider, talk.WithContextWindow(90*time.Second))
	sess := promptSession()
	speaker := types.SpeakerProfile{SpeakerID: "speaker_0", DisplayName: "Deep Dive - speaker_0", CloneID: "v1"}

	reply, err := r.Generate(context.Background(), sess, speaker, "how long can they stay under?", 5*time.Minute+10*time.Second)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if reply != "Great question! They hold their breath." {
		t.Errorf("reply = %q", reply)
	}

	if provider.CallCount() != 1 {
		t.Fatalf("provider called %d times, want 1", provider.CallCount())
	}
	call := provider.Calls[0]
	if !strings.Contains(call.SystemPrompt, "Deep Dive - speaker_0") {
		t.Error("system prompt missing the host name")
	}
	if !strings.Contains(call.SystemPrompt, `podcast "Deep Dive"`) {
		t.Error("system prompt missing the show name")
	}
	if !strings.Contains(call.SystemPrompt, "2 to 3 sentences") {
		t.Error("system prompt missing the brevity instruction")
	}

	user := call.Messages[0].Content
	if call.Messages[0].Role != llm.RoleUser {
		t.Errorf("message role = %q, want user", call.Messages[0].Role)
	}
	if !strings.Contains(user, "how long can they stay under?") {
		t.Error("user prompt missing the question")
	}
	if !strings.Contains(user, "The Secret Life of Whales") {
		t.Error("user prompt missing the episode title")
	}
	if !strings.Contains(user, "5:10") {
		t.Error("user prompt missing the pause timestamp")
	}
	if !strings.Contains(user, "sperm whales dive for an hour") {
		t.Error("user prompt missing transcript around the pause")
	}
	if strings.Contains(user, "way outside the context window") {
		t.Error("user prompt includes transcript beyond the context window")
	}
}

func TestResponder_EmptyReplyIsAnError(t *testing.T) {
	t.Parallel()
	provider := &mockllm.Provider{
		Response: &llm.CompletionResponse{Content: "   "},
	}
	r := talk.NewResponder(provider)
	sess := promptSession()

	_, err := r.Generate(context.Background(), sess, types.SpeakerProfile{SpeakerID: "speaker_0"}, "hello?", time.Minute)
	if err == nil {
		t.Fatal("want error for an empty model reply")
	}
}

func TestExcerpt_Windowing(t *testing.T) {
	t.Parallel()
	result := types.DiarizationResult{
		Segments: []types.Segment{
			{SpeakerID: "speaker_0", Start: 0, End: 30 * time.Second, Text: "intro"},
			{SpeakerID: "speaker_1", Start: 100 * time.Second, End: 130 * time.Second, Text: "middle"},
			{SpeakerID: "speaker_0", Start: 400 * time.Second, End: 430 * time.Second, Text: "late"},
			{SpeakerID: "speaker_1", Start: 110 * time.Second, End: 120 * time.Second, Text: "   "},
		},
	}

	got := talk.Excerpt(result, 110*time.Second, 60*time.Second)
	if !strings.Contains(got, "speaker_1: middle") {
		t.Errorf("excerpt missing overlapping segment: %q", got)
	}
	if strings.Contains(got, "late") {
		t.Errorf("excerpt includes out-of-window segment: %q", got)
	}
	if strings.Contains(got, "speaker_1:   ") {
		t.Errorf("excerpt includes blank segment: %q", got)
	}

	// Near zero the window clamps instead of going negative.
	got = talk.Excerpt(result, 10*time.Second, 60*time.Second)
	if !strings.Contains(got, "speaker_0: intro") {
		t.Errorf("excerpt near start missing intro: %q", got)
	}

	// Far past the analysis window nothing matches.
	if got := talk.Excerpt(result, 2*time.Hour, 60*time.Second); got != "" {
		t.Errorf("excerpt outside window = %q, want empty", got)
	}
}

func TestRandomStrategy(t *testing.T) {
	t.Parallel()
	speakers := []string{"a", "b", "c"}

	s := talk.NewSeededRandomStrategy(42)
	first := make([]string, 10)
	for i := range first {
		pick, err := s.Pick(speakers)
		if err != nil {
			t.Fatalf("Pick: %v", err)
		}
		first[i] = pick
	}

	// Same seed, same sequence.
	s2 := talk.NewSeededRandomStrategy(42)
	for i := range first {
		pick, err := s2.Pick(speakers)
		if err != nil {
			t.Fatalf("Pick: %v", err)
		}
		if pick != first[i] {
			t.Fatalf("seeded strategy diverged at pick %d: %q vs %q", i, pick, first[i])
		}
	}

	if _, err := s.Pick(nil); err == nil {
		t.Error("Pick on empty slice: want error")
	}
}
