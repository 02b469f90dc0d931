package gesture

// DefaultWindowSize is the default number of recent symbols considered by a vote.
const DefaultWindowSize = 10

// Vote is the majority symbol of the window and its share of the window.
type Vote struct {
	Symbol     Symbol
	Confidence float64 // count / window length, in (0, 1]
}

// VoteBuffer is a fixed-capacity FIFO of recent classifications.
// It is owned by a single goroutine and is not safe for concurrent use.
type VoteBuffer struct {
	window   []Symbol
	capacity int
}

// NewVoteBuffer creates a buffer holding at most capacity symbols.
// A non-positive capacity selects DefaultWindowSize.
func NewVoteBuffer(capacity int) *VoteBuffer {
	if capacity <= 0 {
		capacity = DefaultWindowSize
	}
	return &VoteBuffer{
		window:   make([]Symbol, 0, capacity),
		capacity: capacity,
	}
}

// Observe appends s, evicting the oldest symbol when full.
func (b *VoteBuffer) Observe(s Symbol) {
	if len(b.window) == b.capacity {
		copy(b.window, b.window[1:])
		b.window = b.window[:b.capacity-1]
	}
	b.window = append(b.window, s)
}

// Vote returns the most frequent symbol in the window.
//
// On equal counts the tied symbol seen most recently wins. Callers should only
// rely on that for reproducibility. The second result is false for an empty window.
func (b *VoteBuffer) Vote() (Vote, bool) {
	if len(b.window) == 0 {
		return Vote{}, false
	}

	counts := make(map[Symbol]int, len(b.window))
	for _, s := range b.window {
		counts[s]++
	}

	// Walking newest to oldest with a strict comparison keeps the most
	// recent symbol among those tied for the top count.
	var best Symbol
	bestCount := 0
	for i := len(b.window) - 1; i >= 0; i-- {
		s := b.window[i]
		if counts[s] > bestCount {
			best, bestCount = s, counts[s]
		}
	}

	return Vote{
		Symbol:     best,
		Confidence: float64(bestCount) / float64(len(b.window)),
	}, true
}

// Window returns a copy of the buffered symbols, oldest first.
func (b *VoteBuffer) Window() []Symbol {
	out := make([]Symbol, len(b.window))
	copy(out, b.window)
	return out
}

// Len returns the number of buffered symbols.
func (b *VoteBuffer) Len() int {
	return len(b.window)
}

// Capacity returns the window capacity.
func (b *VoteBuffer) Capacity() int {
	return b.capacity
}

// Reset empties the window.
func (b *VoteBuffer) Reset() {
	b.window = b.window[:0]
}
