package wang

import "math/rand"

// NibbleSource yields independent uniform values in [0, 16).
type NibbleSource interface {
	NextNibble() uint8
}

// RandSource draws nibbles from a seeded math/rand generator.
type RandSource struct {
	rng *rand.Rand
}

// NewRandSource returns a deterministic source for seed.
func NewRandSource(seed int64) *RandSource {
	return &RandSource{rng: rand.New(rand.NewSource(seed))}
}

// NextNibble implements NibbleSource.
func (s *RandSource) NextNibble() uint8 {
	return uint8(s.rng.Intn(NumTileIDs))
}

// SequenceSource replays a fixed nibble stream, cycling when exhausted.
// Only the low four bits of each value are used.
type SequenceSource struct {
	seq []uint8
	pos int
}

// NewSequenceSource returns a source that yields seq in order.
func NewSequenceSource(seq ...uint8) *SequenceSource {
	return &SequenceSource{seq: seq}
}

// NextNibble implements NibbleSource. An empty sequence always yields 0.
func (s *SequenceSource) NextNibble() uint8 {
	if len(s.seq) == 0 {
		return 0
	}
	v := s.seq[s.pos%len(s.seq)] & 0x0F
	s.pos++
	return v
}
