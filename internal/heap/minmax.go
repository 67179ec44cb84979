// Package heap implements the generic min-max heap used as the EM-PQ's
// in-memory component, plus a simpler bounded single-ended binary heap
// (PQHeap) for cases where only one direction of extraction is needed.
//
// The min-max heap is 1-indexed: A[1..n]. Even-depth levels (floor(log2(i))
// even) obey the minimum rule; odd-depth levels obey the maximum rule.
// Invariants are local: each node compares against its children and
// grandchildren, maintained by bubble-up and trickle-down.
package heap

import "cmp"

// Keyer extracts the totally-ordered priority key from a record.
type Keyer[T any, K cmp.Ordered] func(T) K

// Combiner merges two records whose keys compare equal, for extract_all_min.
type Combiner[T any] func(a, b T) T

// unboundedInitialCapacity is the original library's MMHEAP_INITIAL_SIZE.
const unboundedInitialCapacity = 1024

// core holds the shared min-max-heap array and navigation logic. Index 0 is
// unused so node i's children are 2i and 2i+1.
type core[T any, K cmp.Ordered] struct {
	data    []T
	size    int
	key     Keyer[T, K]
	combine Combiner[T]
}

func newCore[T any, K cmp.Ordered](capacity int, key Keyer[T, K], combine Combiner[T]) core[T, K] {
	return core[T, K]{
		data:    make([]T, capacity+1),
		size:    0,
		key:     key,
		combine: combine,
	}
}

func isMinLevel(i int) bool {
	level := 0
	for i > 1 {
		i >>= 1
		level++
	}
	return level%2 == 0
}

func leftChild(i int) int  { return 2 * i }
func rightChild(i int) int { return 2*i + 1 }
func parent(i int) int     { return i / 2 }
func grandparent(i int) int {
	return i / 4
}

func (c *core[T, K]) keyOf(i int) K { return c.key(c.data[i]) }

func (c *core[T, K]) hasIndex(i int) bool { return i >= 1 && i <= c.size }

// smallestDescendant returns the index, among i's children and
// grandchildren that exist, holding the smallest key.
func (c *core[T, K]) smallestDescendant(i int) (int, bool) {
	best := -1
	consider := func(idx int) {
		if !c.hasIndex(idx) {
			return
		}
		if best == -1 || c.keyOf(idx) < c.keyOf(best) {
			best = idx
		}
	}
	consider(leftChild(i))
	consider(rightChild(i))
	consider(leftChild(leftChild(i)))
	consider(rightChild(leftChild(i)))
	consider(leftChild(rightChild(i)))
	consider(rightChild(rightChild(i)))
	if best == -1 {
		return -1, false
	}
	return best, true
}

// largestDescendant mirrors smallestDescendant for the max side.
func (c *core[T, K]) largestDescendant(i int) (int, bool) {
	best := -1
	consider := func(idx int) {
		if !c.hasIndex(idx) {
			return
		}
		if best == -1 || c.keyOf(idx) > c.keyOf(best) {
			best = idx
		}
	}
	consider(leftChild(i))
	consider(rightChild(i))
	consider(leftChild(leftChild(i)))
	consider(rightChild(leftChild(i)))
	consider(leftChild(rightChild(i)))
	consider(rightChild(rightChild(i)))
	if best == -1 {
		return -1, false
	}
	return best, true
}

func (c *core[T, K]) isGrandchildOf(descendant, ancestor int) bool {
	return grandparent(descendant) == ancestor
}

func (c *core[T, K]) swap(i, j int) {
	c.data[i], c.data[j] = c.data[j], c.data[i]
}

func (c *core[T, K]) trickleDown(i int) {
	if isMinLevel(i) {
		c.trickleDownMin(i)
	} else {
		c.trickleDownMax(i)
	}
}

func (c *core[T, K]) trickleDownMin(i int) {
	m, ok := c.smallestDescendant(i)
	if !ok {
		return
	}
	if c.isGrandchildOf(m, i) {
		if c.keyOf(m) < c.keyOf(i) {
			c.swap(m, i)
			if c.keyOf(m) > c.keyOf(parent(m)) {
				c.swap(m, parent(m))
			}
			c.trickleDownMin(m)
		}
	} else {
		if c.keyOf(m) < c.keyOf(i) {
			c.swap(m, i)
		}
	}
}

func (c *core[T, K]) trickleDownMax(i int) {
	m, ok := c.largestDescendant(i)
	if !ok {
		return
	}
	if c.isGrandchildOf(m, i) {
		if c.keyOf(m) > c.keyOf(i) {
			c.swap(m, i)
			if c.keyOf(m) < c.keyOf(parent(m)) {
				c.swap(m, parent(m))
			}
			c.trickleDownMax(m)
		}
	} else {
		if c.keyOf(m) > c.keyOf(i) {
			c.swap(m, i)
		}
	}
}

func (c *core[T, K]) bubbleUp(i int) {
	if isMinLevel(i) {
		if i > 1 && c.keyOf(i) > c.keyOf(parent(i)) {
			c.swap(i, parent(i))
			c.bubbleUpMax(parent(i))
		} else {
			c.bubbleUpMin(i)
		}
	} else {
		if i > 1 && c.keyOf(i) < c.keyOf(parent(i)) {
			c.swap(i, parent(i))
			c.bubbleUpMin(parent(i))
		} else {
			c.bubbleUpMax(i)
		}
	}
}

func (c *core[T, K]) bubbleUpMin(i int) {
	gp := grandparent(i)
	if gp >= 1 && c.keyOf(i) < c.keyOf(gp) {
		c.swap(i, gp)
		c.bubbleUpMin(gp)
	}
}

func (c *core[T, K]) bubbleUpMax(i int) {
	gp := grandparent(i)
	if gp >= 1 && c.keyOf(i) > c.keyOf(gp) {
		c.swap(i, gp)
		c.bubbleUpMax(gp)
	}
}

func (c *core[T, K]) min() (T, bool) {
	var zero T
	if c.size == 0 {
		return zero, false
	}
	return c.data[1], true
}

func (c *core[T, K]) max() (T, bool) {
	var zero T
	switch c.size {
	case 0:
		return zero, false
	case 1:
		return c.data[1], true
	case 2:
		return c.data[2], true
	default:
		if c.keyOf(2) >= c.keyOf(3) {
			return c.data[2], true
		}
		return c.data[3], true
	}
}

func (c *core[T, K]) maxIndex() int {
	switch c.size {
	case 0:
		return -1
	case 1:
		return 1
	case 2:
		return 2
	default:
		if c.keyOf(2) >= c.keyOf(3) {
			return 2
		}
		return 3
	}
}

func (c *core[T, K]) extractMin() (T, bool) {
	var zero T
	if c.size == 0 {
		return zero, false
	}
	out := c.data[1]
	c.data[1] = c.data[c.size]
	var z T
	c.data[c.size] = z
	c.size--
	if c.size > 0 {
		c.trickleDown(1)
	}
	return out, true
}

func (c *core[T, K]) extractMax() (T, bool) {
	var zero T
	if c.size == 0 {
		return zero, false
	}
	idx := c.maxIndex()
	out := c.data[idx]
	c.data[idx] = c.data[c.size]
	var z T
	c.data[c.size] = z
	c.size--
	if c.size > 0 && idx <= c.size {
		c.trickleDown(idx)
	}
	return out, true
}

func (c *core[T, K]) extractAllMin() (T, bool) {
	first, ok := c.extractMin()
	if !ok {
		return first, false
	}
	for {
		next, ok := c.min()
		if !ok || c.key(next) != c.key(first) {
			break
		}
		c.extractMin()
		first = c.combine(first, next)
	}
	return first, true
}

func (c *core[T, K]) clear() {
	c.size = 0
}
