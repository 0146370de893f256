package pathfind

// node is one frontier entry. The same cell may be queued several times;
// the cheapest copy surfaces first and the rest are skipped as stale.
type node struct {
	idx  int32
	x, y int32
	g    float64
	f    float64
	seq  uint64 // insertion order, breaks f ties
}

// nodeHeap is a binary min-heap on (f, seq). It works on values rather than
// container/heap's interface boxing so pushes don't allocate once the
// backing array has grown.
type nodeHeap []node

func (h nodeHeap) less(i, j int) bool {
	if h[i].f != h[j].f {
		return h[i].f < h[j].f
	}
	return h[i].seq < h[j].seq
}

func (h *nodeHeap) push(n node) {
	*h = append(*h, n)
	s := *h
	i := len(s) - 1
	for i > 0 {
		parent := (i - 1) / 2
		if !s.less(i, parent) {
			break
		}
		s[parent], s[i] = s[i], s[parent]
		i = parent
	}
}

func (h *nodeHeap) pop() node {
	s := *h
	last := len(s) - 1
	top := s[0]
	s[0] = s[last]
	s = s[:last]
	*h = s

	i := 0
	for {
		left := 2*i + 1
		if left >= len(s) {
			break
		}
		smallest := left
		if right := left + 1; right < len(s) && s.less(right, left) {
			smallest = right
		}
		if !s.less(smallest, i) {
			break
		}
		s[i], s[smallest] = s[smallest], s[i]
		i = smallest
	}
	return top
}
