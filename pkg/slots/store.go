package slots

// denseStore is the reference backend: a single flat slice.
type denseStore struct {
	slots []slot
}

func (s *denseStore) len() int       { return len(s.slots) }
func (s *denseStore) at(i int) *slot { return &s.slots[i] }

func (s *denseStore) insert(i, n int) {
	s.slots = append(s.slots, make([]slot, n)...)
	copy(s.slots[i+n:], s.slots[i:])
	for j := i; j < i+n; j++ {
		s.slots[j] = slot{}
	}
}

func (s *denseStore) remove(i, n int) {
	s.slots = append(s.slots[:i], s.slots[i+n:]...)
}

// chunkedStore keeps slots in bounded chunks, trading the dense backend's
// O(len) shifting for per-chunk copies. It must be observationally identical
// to denseStore; the conformance suite checks that.
type chunkedStore struct {
	chunks [][]slot
	count  int
}

const chunkSize = 32

// locate returns the chunk index and offset for position i. i == count maps
// to the end of the last chunk.
func (s *chunkedStore) locate(i int) (int, int) {
	for ci, c := range s.chunks {
		if i < len(c) {
			return ci, i
		}
		i -= len(c)
	}
	return len(s.chunks), 0
}

func (s *chunkedStore) len() int { return s.count }

func (s *chunkedStore) at(i int) *slot {
	ci, off := s.locate(i)
	return &s.chunks[ci][off]
}

func (s *chunkedStore) insert(i, n int) {
	s.count += n
	ci, off := s.locate(i)
	if ci == len(s.chunks) {
		s.chunks = append(s.chunks, make([]slot, 0, chunkSize))
		off = 0
	}
	c := s.chunks[ci]
	grown := make([]slot, 0, len(c)+n)
	grown = append(grown, c[:off]...)
	grown = append(grown, make([]slot, n)...)
	grown = append(grown, c[off:]...)
	if len(grown) <= chunkSize {
		s.chunks[ci] = grown
		return
	}
	// Split oversized chunks.
	var split [][]slot
	for len(grown) > chunkSize {
		part := make([]slot, chunkSize)
		copy(part, grown[:chunkSize])
		split = append(split, part)
		grown = grown[chunkSize:]
	}
	rest := make([]slot, len(grown))
	copy(rest, grown)
	split = append(split, rest)
	s.chunks = append(s.chunks[:ci], append(split, s.chunks[ci+1:]...)...)
}

func (s *chunkedStore) remove(i, n int) {
	s.count -= n
	for n > 0 {
		ci, off := s.locate(i)
		c := s.chunks[ci]
		take := n
		if take > len(c)-off {
			take = len(c) - off
		}
		s.chunks[ci] = append(c[:off], c[off+take:]...)
		if len(s.chunks[ci]) == 0 {
			s.chunks = append(s.chunks[:ci], s.chunks[ci+1:]...)
		}
		n -= take
	}
}
