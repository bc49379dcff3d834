package router

// pqItem is a priority-queue entry: a node and its tentative cost.
// Grounded on pkg/routing/dijkstra.go's concrete-typed MinHeap, which
// avoids interface-boxing overhead from container/heap; ported from
// uint32 node/uint32 millimeter-cost to osm.NodeID/float64-meter cost since
// this router queries a live graph instead of a preprocessed CSR one.
type pqItem struct {
	node nodeID
	dist float64
}

// minHeap is a concrete-typed binary min-heap over pqItem, by dist.
type minHeap struct {
	items []pqItem
}

func (h *minHeap) Len() int { return len(h.items) }

func (h *minHeap) Push(node nodeID, dist float64) {
	h.items = append(h.items, pqItem{node, dist})
	h.siftUp(len(h.items) - 1)
}

func (h *minHeap) Pop() pqItem {
	n := len(h.items)
	item := h.items[0]
	h.items[0] = h.items[n-1]
	h.items = h.items[:n-1]
	if len(h.items) > 0 {
		h.siftDown(0)
	}
	return item
}

func (h *minHeap) PeekDist() float64 {
	if len(h.items) == 0 {
		return posInf
	}
	return h.items[0].dist
}

func (h *minHeap) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if h.items[i].dist >= h.items[parent].dist {
			break
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

func (h *minHeap) siftDown(i int) {
	n := len(h.items)
	for {
		smallest := i
		left, right := 2*i+1, 2*i+2
		if left < n && h.items[left].dist < h.items[smallest].dist {
			smallest = left
		}
		if right < n && h.items[right].dist < h.items[smallest].dist {
			smallest = right
		}
		if smallest == i {
			break
		}
		h.items[i], h.items[smallest] = h.items[smallest], h.items[i]
		i = smallest
	}
}
