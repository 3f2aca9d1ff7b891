package hrtree

import (
	"sort"

	"github.com/banshee-data/velocity.report/internal/wildfire/geo"
)

// ChildrenPerNode is the R-tree fan-out: internal nodes group exactly this
// many children (the last group at each level may be smaller).
const ChildrenPerNode = 8

// OverlapFudgeFactor is the eps used when testing whether sibling bounding
// boxes overlap, both at build time and when re-checking after an update.
const OverlapFudgeFactor = 1.0e-5

type node struct {
	bbox            geo.BoundingBox
	isLeaf          bool
	childrenOverlap bool
	children        []*node
	hilbertNum      uint64
	index           int
}

func (n *node) boundingBox() geo.BoundingBox {
	return n.bbox
}

// View is a bulk-built Hilbert-ordered R-tree over a caller-owned slice of
// items. It owns only its tree nodes; the data slice is never copied.
type View[T geo.Geo] struct {
	root  *node
	curve *Curve
	data  []T
}

// BuildFor constructs a View over data. If domain is nil, the domain is
// computed as the union of every item's bounding box. Returns nil for an
// empty slice.
func BuildFor[T geo.Geo](data []T, domain *geo.BoundingBox) *View[T] {
	if len(data) == 0 {
		return nil
	}

	var dom geo.BoundingBox
	if domain != nil {
		dom = *domain
	} else {
		dom = buildDomain(data)
	}

	curve := NewCurve(16, dom)

	leaves := make([]*node, len(data))
	for i, item := range data {
		leaves[i] = &node{
			isLeaf:     true,
			bbox:       item.BoundingBox(),
			hilbertNum: curve.TranslateToCurveDistance(item.Centroid()),
			index:      i,
		}
	}

	sort.Slice(leaves, func(i, j int) bool { return leaves[i].hilbertNum < leaves[j].hilbertNum })

	level := leaves
	for len(level) > 1 {
		next := make([]*node, 0, (len(level)+ChildrenPerNode-1)/ChildrenPerNode)
		for i := 0; i < len(level); i += ChildrenPerNode {
			end := i + ChildrenPerNode
			if end > len(level) {
				end = len(level)
			}
			next = append(next, newNodeFrom(level[i:end]))
		}
		level = next
	}

	return &View[T]{root: level[0], curve: curve, data: data}
}

func newNodeFrom(children []*node) *node {
	bbox := children[0].bbox
	for _, c := range children[1:] {
		bbox = bbox.Union(c.bbox)
	}
	return &node{
		bbox:            bbox,
		childrenOverlap: computeChildrenOverlap(children),
		children:        children,
	}
}

func computeChildrenOverlap(children []*node) bool {
	for i := range children {
		for j := range children {
			if i == j {
				continue
			}
			if children[i].bbox.Overlap(children[j].bbox, OverlapFudgeFactor) {
				return true
			}
		}
	}
	return false
}

// ControlFlow threads an accumulator through Foreach while expressing
// early exit (Break) or continuation (Continue).
type ControlFlow[V any] struct {
	Break bool
	Value V
}

// Continue wraps a value to keep iterating.
func Continue[V any](v V) ControlFlow[V] { return ControlFlow[V]{Value: v} }

// Halt wraps a value and stops iteration immediately.
func Halt[V any](v V) ControlFlow[V] { return ControlFlow[V]{Break: true, Value: v} }

// UpdateFunc inspects or mutates the item at index, returning whether the
// item's geometry changed (forcing a cached bounding box refresh) and the
// next control-flow state.
type UpdateFunc[T geo.Geo, V any] func(item *T, index int, acc V) (updated bool, next ControlFlow[V])

// Foreach recursively descends nodes whose bounding boxes overlap region,
// invoking update at each leaf. If update reports the item changed, the
// leaf's cached box is refreshed and every ancestor's cached box is widened
// to match; any ancestor whose children-overlap flag was false re-checks its
// children afterward, since an expanded child box may newly overlap a
// sibling. Returns the final accumulator; an empty view returns acc
// unchanged.
func Foreach[T geo.Geo, V any](v *View[T], region geo.BoundingBox, acc V, update UpdateFunc[T, V]) V {
	if v == nil || v.root == nil {
		return acc
	}
	_, ctl := foreachNode(v.root, v.data, region, acc, update)
	return ctl.Value
}

func foreachNode[T geo.Geo, V any](n *node, data []T, region geo.BoundingBox, acc V, update UpdateFunc[T, V]) (bool, ControlFlow[V]) {
	if !n.boundingBox().Overlap(region, OverlapFudgeFactor) {
		return false, Continue(acc)
	}

	if n.isLeaf {
		updated, ctl := update(&data[n.index], n.index, acc)
		if updated {
			n.bbox = data[n.index].BoundingBox()
		}
		return updated, ctl
	}

	updatedAny := false
	curAcc := acc
	broke := false

	for _, child := range n.children {
		var ctl ControlFlow[V]
		var childUpdated bool
		childUpdated, ctl = foreachNode(child, data, region, curAcc, update)
		curAcc = ctl.Value
		if childUpdated {
			updatedAny = true
			n.bbox = n.bbox.Union(child.bbox)
		}
		if ctl.Break {
			broke = true
			break
		}
	}

	if !n.childrenOverlap && updatedAny {
		n.childrenOverlap = computeChildrenOverlap(n.children)
	}

	return updatedAny, ControlFlow[V]{Break: broke, Value: curAcc}
}

// IndexesOfPotentialOverlap returns, as a cheap upper bound, every item
// index reachable through a node whose cached children-overlap flag is set
// — i.e. every item that might overlap some sibling. It is used to bound
// association and merge work; callers still apply the precise predicate.
func (v *View[T]) IndexesOfPotentialOverlap() []int {
	if v == nil || v.root == nil {
		return nil
	}
	buf := make([]int, 0, len(v.data)/1000+1)
	collectPotentialOverlap(v.root, &buf)
	return buf
}

func collectPotentialOverlap(n *node, buf *[]int) {
	if n.isLeaf {
		return
	}
	for _, c := range n.children {
		if n.childrenOverlap {
			collectAllLeaves(c, buf)
		} else {
			collectPotentialOverlap(c, buf)
		}
	}
}

func collectAllLeaves(n *node, buf *[]int) {
	if n.isLeaf {
		*buf = append(*buf, n.index)
		return
	}
	for _, c := range n.children {
		collectAllLeaves(c, buf)
	}
}
