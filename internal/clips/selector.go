// Package clips selects voice-clone training material from diarized
// segments.
//
// Selection runs per speaker in three phases: merge the speaker's
// segments into contiguous speech blocks (bridging gaps up to a
// tolerance), rank blocks longest first, then greedily take blocks while
// both the duration budget and the estimated byte budget hold. A block
// that would overflow either budget is skipped, not truncated, so every
// selected clip is a clean span of continuous speech.
package clips

import (
	"sort"
	"time"

	"github.com/podtalk/podtalk/internal/config"
	"github.com/podtalk/podtalk/pkg/types"
)

// Selector packs speech blocks into the clone training budgets.
// The zero value is unusable; construct with [NewSelector].
type Selector struct {
	maxTotalDuration time.Duration
	maxTotalBytes    int64
	bitrateKbps      int
	mergeGap         time.Duration
	minBlock         time.Duration
}

// NewSelector builds a Selector from the clip budget configuration.
func NewSelector(cfg config.ClipsConfig) *Selector {
	return &Selector{
		maxTotalDuration: cfg.MaxTotalDuration.Std(),
		maxTotalBytes:    cfg.MaxTotalBytes,
		bitrateKbps:      cfg.BitrateKbps,
		mergeGap:         cfg.MergeGap.Std(),
		minBlock:         cfg.MinBlock.Std(),
	}
}

// Selection is the chosen training material for one speaker.
type Selection struct {
	// SpeakerID is the speaker the clips belong to.
	SpeakerID string

	// Clips are the selected spans in chronological order.
	Clips []types.Clip

	// TotalDuration is the summed clip length.
	TotalDuration time.Duration

	// EstimatedBytes is the estimated encoded size of the clips at the
	// configured bitrate.
	EstimatedBytes int64
}

// Select picks training clips for speakerID from its diarized segments.
// Segments belonging to other speakers are ignored. Returns
// *types.InsufficientAudioError when no block reaches the minimum usable
// length.
func (s *Selector) Select(speakerID string, segments []types.Segment) (Selection, error) {
	blocks := s.Blocks(speakerID, segments)

	usable := blocks[:0:0]
	var available time.Duration
	for _, b := range blocks {
		available += b.Duration()
		if b.Duration() >= s.minBlock {
			usable = append(usable, b)
		}
	}
	if len(usable) == 0 {
		return Selection{}, &types.InsufficientAudioError{
			SpeakerID: speakerID,
			Available: available,
			Required:  s.minBlock,
		}
	}

	// Longest block first; equal lengths resolve to the earlier block
	// so selection is deterministic.
	sort.SliceStable(usable, func(i, j int) bool {
		di, dj := usable[i].Duration(), usable[j].Duration()
		if di != dj {
			return di > dj
		}
		return usable[i].Start < usable[j].Start
	})

	sel := Selection{SpeakerID: speakerID}
	for _, b := range usable {
		d := b.Duration()
		if sel.TotalDuration+d > s.maxTotalDuration {
			continue
		}
		if sel.EstimatedBytes+s.estimateBytes(d) > s.maxTotalBytes {
			continue
		}
		sel.Clips = append(sel.Clips, b)
		sel.TotalDuration += d
		sel.EstimatedBytes += s.estimateBytes(d)
	}

	if len(sel.Clips) == 0 {
		// Every usable block alone overflows a budget.
		return Selection{}, &types.InsufficientAudioError{
			SpeakerID: speakerID,
			Available: available,
			Required:  s.minBlock,
		}
	}

	// Clips are cut from the episode in order.
	sort.Slice(sel.Clips, func(i, j int) bool {
		return sel.Clips[i].Start < sel.Clips[j].Start
	})
	return sel, nil
}

// Blocks merges speakerID's segments into contiguous speech blocks,
// bridging pauses up to the configured gap tolerance.
func (s *Selector) Blocks(speakerID string, segments []types.Segment) []types.Clip {
	var spans []types.Segment
	for _, seg := range segments {
		if seg.SpeakerID == speakerID && seg.End > seg.Start {
			spans = append(spans, seg)
		}
	}
	if len(spans) == 0 {
		return nil
	}
	sort.SliceStable(spans, func(i, j int) bool {
		return spans[i].Start < spans[j].Start
	})

	blocks := []types.Clip{{SpeakerID: speakerID, Start: spans[0].Start, End: spans[0].End}}
	for _, seg := range spans[1:] {
		last := &blocks[len(blocks)-1]
		if seg.Start-last.End <= s.mergeGap {
			if seg.End > last.End {
				last.End = seg.End
			}
			continue
		}
		blocks = append(blocks, types.Clip{SpeakerID: speakerID, Start: seg.Start, End: seg.End})
	}
	return blocks
}

// estimateBytes converts a clip length into an encoded size estimate at
// the configured bitrate.
func (s *Selector) estimateBytes(d time.Duration) int64 {
	return int64(d.Seconds() * float64(s.bitrateKbps) * 1000 / 8)
}
