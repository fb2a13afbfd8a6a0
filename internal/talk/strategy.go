package talk

import (
	"errors"
	"math/rand/v2"
	"sync"
)

// Strategy picks which cloned speaker answers a question.
type Strategy interface {
	// Pick returns one of the given speaker IDs. speakers is never
	// reordered and always has at least one element when the session
	// calls Pick.
	Pick(speakers []string) (string, error)
}

// RandomStrategy picks a speaker uniformly at random. Any host answering
// any question matches how a real co-hosted show behaves; smarter routing
// (who was speaking at the pause point, topic affinity) can slot in behind
// the Strategy interface.
type RandomStrategy struct {
	mu  sync.Mutex
	rng *rand.Rand
}

var _ Strategy = (*RandomStrategy)(nil)

// NewRandomStrategy returns a RandomStrategy with a randomly seeded source.
func NewRandomStrategy() *RandomStrategy {
	return &RandomStrategy{
		rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// NewSeededRandomStrategy returns a RandomStrategy with a fixed seed, for
// deterministic tests.
func NewSeededRandomStrategy(seed uint64) *RandomStrategy {
	return &RandomStrategy{
		rng: rand.New(rand.NewPCG(seed, seed)),
	}
}

// Pick implements Strategy.
func (s *RandomStrategy) Pick(speakers []string) (string, error) {
	if len(speakers) == 0 {
		return "", errors.New("talk: no speakers to pick from")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return speakers[s.rng.IntN(len(speakers))], nil
}
