package store

import "container/list"

// replacementIndex tracks candidate order for eviction. All three policies
// share the same contract: add/remove bracket a file's lifetime in the
// store, touch records an access, and victim walks candidates in the
// policy's order, skipping anything the supplied predicate marks ineligible,
// without reordering or removing anything it merely skips over.
type replacementIndex interface {
	add(name string)
	remove(name string)
	touch(name string)
	victim(ineligible func(name string) bool) (string, bool)
	order() []string
}

// newReplacementIndex builds the index matching the configured policy.
func newReplacementIndex(p Policy) replacementIndex {
	switch p {
	case PolicyLRU:
		return newLRUIndex()
	case PolicyLFU:
		return newLFUIndex()
	default:
		return newFIFOIndex()
	}
}

// fifoIndex keeps insertion order; touch is a no-op, victims are considered
// oldest-first.
type fifoIndex struct {
	order_ *list.List
	elems  map[string]*list.Element
}

func newFIFOIndex() *fifoIndex {
	return &fifoIndex{order_: list.New(), elems: make(map[string]*list.Element)}
}

func (x *fifoIndex) add(name string) {
	x.elems[name] = x.order_.PushBack(name)
}

func (x *fifoIndex) remove(name string) {
	if e, ok := x.elems[name]; ok {
		x.order_.Remove(e)
		delete(x.elems, name)
	}
}

func (x *fifoIndex) touch(string) {}

func (x *fifoIndex) victim(ineligible func(string) bool) (string, bool) {
	for e := x.order_.Front(); e != nil; e = e.Next() {
		name := e.Value.(string)
		if !ineligible(name) {
			return name, true
		}
	}
	return "", false
}

func (x *fifoIndex) order() []string {
	out := make([]string, 0, x.order_.Len())
	for e := x.order_.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(string))
	}
	return out
}

// lruIndex keeps a list ordered from least- to most-recently used; touch
// moves the entry to the back, so the front is always the eviction candidate.
type lruIndex struct {
	order_ *list.List
	elems  map[string]*list.Element
}

func newLRUIndex() *lruIndex {
	return &lruIndex{order_: list.New(), elems: make(map[string]*list.Element)}
}

func (x *lruIndex) add(name string) {
	x.elems[name] = x.order_.PushBack(name)
}

func (x *lruIndex) remove(name string) {
	if e, ok := x.elems[name]; ok {
		x.order_.Remove(e)
		delete(x.elems, name)
	}
}

func (x *lruIndex) touch(name string) {
	if e, ok := x.elems[name]; ok {
		x.order_.MoveToBack(e)
	}
}

func (x *lruIndex) victim(ineligible func(string) bool) (string, bool) {
	for e := x.order_.Front(); e != nil; e = e.Next() {
		name := e.Value.(string)
		if !ineligible(name) {
			return name, true
		}
	}
	return "", false
}

func (x *lruIndex) order() []string {
	out := make([]string, 0, x.order_.Len())
	for e := x.order_.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(string))
	}
	return out
}

// lfuIndex tracks an access counter per file. Candidates are ranked by
// counter value; ties are broken by insertion order, which the backing list
// preserves independent of counter mutation.
type lfuIndex struct {
	order_ *list.List
	elems  map[string]*list.Element
	counts map[string]uint64
}

func newLFUIndex() *lfuIndex {
	return &lfuIndex{order_: list.New(), elems: make(map[string]*list.Element), counts: make(map[string]uint64)}
}

func (x *lfuIndex) add(name string) {
	x.elems[name] = x.order_.PushBack(name)
	x.counts[name] = 0
}

func (x *lfuIndex) remove(name string) {
	if e, ok := x.elems[name]; ok {
		x.order_.Remove(e)
		delete(x.elems, name)
		delete(x.counts, name)
	}
}

func (x *lfuIndex) touch(name string) {
	if _, ok := x.counts[name]; ok {
		x.counts[name]++
	}
}

func (x *lfuIndex) victim(ineligible func(string) bool) (string, bool) {
	best := ""
	bestCount := uint64(0)
	found := false
	for e := x.order_.Front(); e != nil; e = e.Next() {
		name := e.Value.(string)
		if ineligible(name) {
			continue
		}
		if !found || x.counts[name] < bestCount {
			best, bestCount, found = name, x.counts[name], true
		}
	}
	return best, found
}

func (x *lfuIndex) order() []string {
	out := make([]string, 0, x.order_.Len())
	for e := x.order_.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(string))
	}
	return out
}
