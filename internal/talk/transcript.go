package talk

import (
	"strings"
	"time"

	"github.com/podtalk/podtalk/pkg/types"
)

// Excerpt extracts the transcript text around a playback position: every
// diarized segment overlapping [pos-window, pos+window], one line per
// segment, prefixed with its speaker ID. Returns "" when the position
// falls outside the diarized analysis window.
func Excerpt(result types.DiarizationResult, pos, window time.Duration) string {
	from := pos - window
	if from < 0 {
		from = 0
	}
	to := pos + window

	var b strings.Builder
	for _, seg := range result.Segments {
		if seg.End <= from || seg.Start >= to {
			continue
		}
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(seg.SpeakerID)
		b.WriteString(": ")
		b.WriteString(text)
	}
	return b.String()
}
