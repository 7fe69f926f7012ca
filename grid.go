package splinepy

// Control points form a tensor-product grid over the parametric axes,
// flattened in row-major order: axis 0 varies slowest, the last axis
// fastest. These helpers convert between multi-indices and flat offsets and
// iterate grid lines along one axis, which is how the refinement engine
// applies univariate algorithms to tensor-product splines.

// gridStrides returns the row-major stride per axis for the given per-axis
// sizes.
func gridStrides(sizes []int) []int {
	strides := make([]int, len(sizes))
	stride := 1
	for axis := len(sizes) - 1; axis >= 0; axis-- {
		strides[axis] = stride
		stride *= sizes[axis]
	}
	return strides
}

// gridSize returns the total number of grid entries.
func gridSize(sizes []int) int {
	n := 1
	for _, s := range sizes {
		n *= s
	}
	return n
}

// gridOffset flattens a multi-index.
func gridOffset(index, strides []int) int {
	var off int
	for axis, i := range index {
		off += i * strides[axis]
	}
	return off
}

// nextIndex advances a multi-index in row-major order. It reports false
// after the last index wraps around to all zeros.
func nextIndex(index, sizes []int) bool {
	for axis := len(index) - 1; axis >= 0; axis-- {
		index[axis]++
		if index[axis] < sizes[axis] {
			return true
		}
		index[axis] = 0
	}
	return false
}

// gridLinePairs iterates the grid lines along axis of two grids that agree
// on every other axis, yielding the matching start offsets in both. Used
// when a univariate algorithm changes the number of control points along
// the axis.
func gridLinePairs(oldSizes, newSizes []int, axis int, fn func(oldStart, newStart int)) {
	oldStrides := gridStrides(oldSizes)
	newStrides := gridStrides(newSizes)
	outer := make([]int, 0, len(oldSizes)-1)
	oldOuter := make([]int, 0, len(oldSizes)-1)
	newOuter := make([]int, 0, len(oldSizes)-1)
	for a, s := range oldSizes {
		if a == axis {
			continue
		}
		outer = append(outer, s)
		oldOuter = append(oldOuter, oldStrides[a])
		newOuter = append(newOuter, newStrides[a])
	}
	if len(outer) == 0 {
		fn(0, 0)
		return
	}
	index := make([]int, len(outer))
	for {
		fn(gridOffset(index, oldOuter), gridOffset(index, newOuter))
		if !nextIndex(index, outer) {
			return
		}
	}
}

// gatherLine copies the grid line along axis starting at start into a fresh
// slice of rows (the rows themselves are shared, not copied).
func gatherLine(grid [][]float64, start, stride, count int) [][]float64 {
	line := make([][]float64, count)
	for i := range line {
		line[i] = grid[start+i*stride]
	}
	return line
}

// scatterLine writes a line produced by a univariate algorithm back into a
// grid with a possibly different size along the axis.
func scatterLine(grid [][]float64, line [][]float64, start, stride int) {
	for i, row := range line {
		grid[start+i*stride] = row
	}
}
