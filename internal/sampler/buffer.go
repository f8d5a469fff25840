package sampler

import "github.com/mpsm/bsprof/internal/profile"

// sampleBuffer stores samples in insertion order. With a positive capacity it
// behaves as a ring, evicting the oldest sample once full.
type sampleBuffer struct {
	data    []profile.Sample
	limit   int
	head    int
	dropped int
}

func newSampleBuffer(limit int) *sampleBuffer {
	if limit < 0 {
		limit = 0
	}
	return &sampleBuffer{limit: limit}
}

func (b *sampleBuffer) push(s profile.Sample) {
	if b.limit == 0 || len(b.data) < b.limit {
		b.data = append(b.data, s)
		return
	}
	b.data[b.head] = s
	b.head = (b.head + 1) % b.limit
	b.dropped++
}

// slice returns samples oldest first.
func (b *sampleBuffer) slice() []profile.Sample {
	if len(b.data) == 0 {
		return nil
	}
	out := make([]profile.Sample, 0, len(b.data))
	out = append(out, b.data[b.head:]...)
	out = append(out, b.data[:b.head]...)
	return out
}
