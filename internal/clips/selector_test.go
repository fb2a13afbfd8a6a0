package clips_test

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/podtalk/podtalk/internal/clips"
	"github.com/podtalk/podtalk/internal/config"
	"github.com/podtalk/podtalk/pkg/types"
)

func newSelector(maxDur time.Duration, maxBytes int64) *clips.Selector {
	return clips.NewSelector(config.ClipsConfig{
		MaxTotalDuration: config.Duration(maxDur),
		MaxTotalBytes:    maxBytes,
		BitrateKbps:      192,
		MergeGap:         config.Duration(2 * time.Second),
		MinBlock:         config.Duration(5 * time.Second),
	})
}

func seg(speaker string, start, end time.Duration) types.Segment {
	return types.Segment{SpeakerID: speaker, Start: start, End: end}
}

func TestSelect_BudgetsHold(t *testing.T) {
	t.Parallel()
	s := newSelector(5*time.Minute, 11<<20)

	var segments []types.Segment
	for i := 0; i < 40; i++ {
		start := time.Duration(i) * 30 * time.Second
		segments = append(segments, seg("speaker_0", start, start+20*time.Second))
	}

	sel, err := s.Select("speaker_0", segments)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if sel.TotalDuration > 5*time.Minute {
		t.Errorf("total duration %v exceeds budget", sel.TotalDuration)
	}
	if sel.EstimatedBytes > 11<<20 {
		t.Errorf("estimated bytes %d exceed budget", sel.EstimatedBytes)
	}
	var sum time.Duration
	for _, c := range sel.Clips {
		sum += c.Duration()
	}
	if sum != sel.TotalDuration {
		t.Errorf("TotalDuration %v does not match clip sum %v", sel.TotalDuration, sum)
	}
}

func TestSelect_Deterministic(t *testing.T) {
	t.Parallel()
	s := newSelector(time.Minute, 11<<20)

	// Two 20s blocks tie in length; the earlier one must win the tie on
	// every run.
	segments := []types.Segment{
		seg("a", 100*time.Second, 120*time.Second),
		seg("a", 10*time.Second, 30*time.Second),
		seg("a", 200*time.Second, 230*time.Second),
	}

	first, err := s.Select("a", segments)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := s.Select("a", segments)
		if err != nil {
			t.Fatalf("Select: %v", err)
		}
		if !reflect.DeepEqual(first.Clips, again.Clips) {
			t.Fatalf("selection not deterministic: %v vs %v", first.Clips, again.Clips)
		}
	}
}

func TestBlocks_GapMerging(t *testing.T) {
	t.Parallel()
	s := newSelector(5*time.Minute, 11<<20)

	cases := []struct {
		name string
		gap  time.Duration
		want int
	}{
		{"gap below tolerance merges", time.Second, 1},
		{"gap at tolerance merges", 2 * time.Second, 1},
		{"gap above tolerance splits", 3 * time.Second, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			segments := []types.Segment{
				seg("a", 0, 10*time.Second),
				seg("a", 10*time.Second+tc.gap, 20*time.Second+tc.gap),
			}
			blocks := s.Blocks("a", segments)
			if len(blocks) != tc.want {
				t.Errorf("got %d blocks, want %d: %v", len(blocks), tc.want, blocks)
			}
		})
	}
}

func TestSelect_InsufficientAudio(t *testing.T) {
	t.Parallel()
	s := newSelector(5*time.Minute, 11<<20)

	// 3 seconds total, below the 5 second minimum.
	segments := []types.Segment{seg("thin", 0, 3*time.Second)}

	_, err := s.Select("thin", segments)
	var insufficient *types.InsufficientAudioError
	if !errors.As(err, &insufficient) {
		t.Fatalf("want InsufficientAudioError, got %v", err)
	}
	if insufficient.SpeakerID != "thin" {
		t.Errorf("error speaker = %q, want thin", insufficient.SpeakerID)
	}
	if insufficient.Available != 3*time.Second {
		t.Errorf("available = %v, want 3s", insufficient.Available)
	}
}

func TestSelect_SkipsBlockThatWouldOverflow(t *testing.T) {
	t.Parallel()
	// Duration budget 400s. Speaker A has blocks of 200s and 240s; the
	// 240s block is taken first, then 200s would overflow (440 > 400)
	// and must be skipped, not truncated.
	s := newSelector(400*time.Second, 1<<30)

	segments := []types.Segment{
		seg("A", 0, 200*time.Second),
		seg("B", 205*time.Second, 260*time.Second),
		seg("A", 260*time.Second, 500*time.Second),
	}

	sel, err := s.Select("A", segments)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(sel.Clips) != 1 {
		t.Fatalf("got %d clips, want 1: %v", len(sel.Clips), sel.Clips)
	}
	got := sel.Clips[0]
	if got.Start != 260*time.Second || got.End != 500*time.Second {
		t.Errorf("selected (%v,%v), want (260s,500s)", got.Start, got.End)
	}
	if sel.TotalDuration != 240*time.Second {
		t.Errorf("total duration = %v, want 240s", sel.TotalDuration)
	}
}

func TestSelect_IgnoresOtherSpeakers(t *testing.T) {
	t.Parallel()
	s := newSelector(5*time.Minute, 11<<20)

	segments := []types.Segment{
		seg("a", 0, 30*time.Second),
		seg("b", 40*time.Second, 400*time.Second),
	}
	sel, err := s.Select("a", segments)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	for _, c := range sel.Clips {
		if c.SpeakerID != "a" {
			t.Errorf("clip for wrong speaker: %+v", c)
		}
	}
	if sel.TotalDuration != 30*time.Second {
		t.Errorf("total = %v, want 30s", sel.TotalDuration)
	}
}

func TestSelect_ChronologicalOutput(t *testing.T) {
	t.Parallel()
	s := newSelector(5*time.Minute, 11<<20)

	// Longest-first picking would yield 100s block before the 50s one;
	// output must still be chronological.
	segments := []types.Segment{
		seg("a", 0, 50*time.Second),
		seg("a", 60*time.Second, 160*time.Second),
	}
	sel, err := s.Select("a", segments)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	for i := 1; i < len(sel.Clips); i++ {
		if sel.Clips[i].Start < sel.Clips[i-1].Start {
			t.Errorf("clips out of order: %v", sel.Clips)
		}
	}
}

func TestSelect_ByteBudget(t *testing.T) {
	t.Parallel()
	// 192 kbit/s is 24000 bytes/s, so 10s of audio is 240000 bytes.
	// A byte budget of 250000 fits one 10s block but not two.
	s := newSelector(5*time.Minute, 250000)

	segments := []types.Segment{
		seg("a", 0, 10*time.Second),
		seg("a", 20*time.Second, 30*time.Second),
	}
	sel, err := s.Select("a", segments)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(sel.Clips) != 1 {
		t.Errorf("got %d clips, want 1 under byte budget", len(sel.Clips))
	}
	if sel.EstimatedBytes > 250000 {
		t.Errorf("estimated bytes %d exceed budget", sel.EstimatedBytes)
	}
}
