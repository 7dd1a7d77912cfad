package bidding

import "math/rand"

// Arbiter decides which of a window's active bidders win when the window
// closes. It is the single pluggable seam for award policy.
type Arbiter interface {
	SelectWinners(bids []JobBid) []JobBid
}

// UniformArbiter picks one winner uniformly at random. The random source is
// injected so sweeps are deterministic under test.
type UniformArbiter struct {
	rng *rand.Rand
}

func NewUniformArbiter(src rand.Source) *UniformArbiter {
	return &UniformArbiter{rng: rand.New(src)}
}

func (a *UniformArbiter) SelectWinners(bids []JobBid) []JobBid {
	if len(bids) == 0 {
		return nil
	}
	return []JobBid{bids[a.rng.Intn(len(bids))]}
}
