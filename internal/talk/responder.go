package talk

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/podtalk/podtalk/internal/session"
	"github.com/podtalk/podtalk/pkg/provider/llm"
	"github.com/podtalk/podtalk/pkg/types"
)

// Responder turns a listener question into a short in-character host reply.
type Responder struct {
	llm           llm.Provider
	contextWindow time.Duration
	maxTokens     int
	temperature   float64
}

// ResponderOption is a functional option for NewResponder.
type ResponderOption func(*Responder)

// WithContextWindow sets how much transcript around the pause position
// feeds the prompt. Defaults to 60 seconds.
func WithContextWindow(d time.Duration) ResponderOption {
	return func(r *Responder) {
		r.contextWindow = d
	}
}

// WithMaxTokens caps the reply length. Defaults to 300, enough for the
// two-to-three-sentence replies the prompt asks for.
func WithMaxTokens(n int) ResponderOption {
	return func(r *Responder) {
		r.maxTokens = n
	}
}

// WithTemperature sets the sampling temperature. Defaults to 0.8.
func WithTemperature(t float64) ResponderOption {
	return func(r *Responder) {
		r.temperature = t
	}
}

// NewResponder builds a Responder over an LLM provider.
func NewResponder(p llm.Provider, opts ...ResponderOption) *Responder {
	r := &Responder{
		llm:           p,
		contextWindow: 60 * time.Second,
		maxTokens:     300,
		temperature:   0.8,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Generate produces the host's reply to a listener question asked at the
// given playback position. There is no local fallback: a provider failure
// surfaces to the caller and the turn fails.
func (r *Responder) Generate(ctx context.Context, sess *session.Context, speaker types.SpeakerProfile, question string, pos time.Duration) (string, error) {
	resp, err := r.llm.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: r.systemPrompt(sess.Show(), speaker),
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: r.userPrompt(sess, question, pos)},
		},
		MaxTokens:   r.maxTokens,
		Temperature: r.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("generate reply: %w", err)
	}
	reply := strings.TrimSpace(resp.Content)
	if reply == "" {
		return "", fmt.Errorf("generate reply: model returned no text")
	}
	return reply, nil
}

// systemPrompt frames the model as the chosen host, mid-episode.
func (r *Responder) systemPrompt(show string, speaker types.SpeakerProfile) string {
	name := speaker.DisplayName
	if name == "" {
		name = speaker.SpeakerID
	}
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, a host of the podcast %q.\n", name, show)
	b.WriteString("A listener just paused the episode to ask you something.\n\n")
	b.WriteString("Your response style:\n")
	b.WriteString("- Conversational and warm, like talking to a friend\n")
	b.WriteString("- Knowledgeable but not condescending\n")
	b.WriteString("- Brief, 2 to 3 sentences at most; this is a quick aside, not a monologue\n")
	b.WriteString("- Match the tone of the actual podcast\n\n")
	b.WriteString("The listener interrupted mid-episode. Pay special attention to what was being said right when they paused; that is almost certainly what they are asking about.")
	return b.String()
}

// userPrompt carries the question plus the episode context around the
// pause position.
func (r *Responder) userPrompt(sess *session.Context, question string, pos time.Duration) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Listener's question: %q\n\n", question)
	if title := sess.Title(); title != "" {
		fmt.Fprintf(&b, "Episode: %s\n", title)
	}
	fmt.Fprintf(&b, "Timestamp when paused: %d:%02d\n\n", int(pos.Minutes()), int(pos.Seconds())%60)

	if excerpt := Excerpt(sess.Diarization(), pos, r.contextWindow); excerpt != "" {
		b.WriteString("What was being said around the pause point:\n\"\"\"\n")
		b.WriteString(excerpt)
		b.WriteString("\n\"\"\"\n\n")
	}
	b.WriteString("Respond naturally:")
	return b.String()
}
