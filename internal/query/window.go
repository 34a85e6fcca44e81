package query

import "sort"

// WithinWindow reports whether a phrase matches given the document positions of
// each phrase term (positions[i] belongs to the i-th phrase term).
//
// Each position is shifted by its term's offset in the phrase; the phrase
// matches when some choice of one shifted position per term spans at most slop.
// With slop 0 this is an exact in-order phrase; reversed adjacent terms need slop 2.
func WithinWindow(positions [][]int, slop int) bool {
	if len(positions) == 0 {
		return false
	}
	lists := make([][]int, len(positions))
	for i, ps := range positions {
		if len(ps) == 0 {
			return false
		}
		shifted := make([]int, len(ps))
		for j, p := range ps {
			shifted[j] = p - i
		}
		sort.Ints(shifted)
		lists[i] = shifted
	}
	if len(lists) == 1 {
		return true
	}

	// Smallest range covering one element of every list: advance the list
	// holding the current minimum until one list is exhausted.
	idx := make([]int, len(lists))
	for {
		lo, hi, loList := lists[0][idx[0]], lists[0][idx[0]], 0
		for i := 1; i < len(lists); i++ {
			v := lists[i][idx[i]]
			if v < lo {
				lo, loList = v, i
			}
			if v > hi {
				hi = v
			}
		}
		if hi-lo <= slop {
			return true
		}
		idx[loList]++
		if idx[loList] >= len(lists[loList]) {
			return false
		}
	}
}
