package motion

import "math"

// Coord is one step of a warping path: index I into the first sequence and J
// into the second.
type Coord struct {
	I, J int
}

// Alignment is the outcome of matching two sequences with DTW.
type Alignment struct {
	// AvgDistance and MaxDistance are taken over the per-pair costs along the path.
	AvgDistance float64
	MaxDistance float64
	PathLength  int
	TotalCost   float64
	Path        []Coord
}

// Comparable reports whether a warping path was found.
func (a Alignment) Comparable() bool {
	return a.PathLength > 0
}

// DTW calculates the Dynamic Time Warping alignment of a and b, where cost
// gives the distance between one element of each. Pairwise costs are computed
// once. Among equal predecessors the backtrack prefers the diagonal step, then
// the step in a, then the step in b.
// Returns an empty alignment with TotalCost +Inf if either sequence is empty.
func DTW[T any](a, b []T, cost func(T, T) float64) Alignment {
	n, m := len(a), len(b)
	if n == 0 || m == 0 {
		return Alignment{TotalCost: math.Inf(1)}
	}

	// Precompute pairwise costs
	fd := make([][]float64, n)
	for i := range fd {
		fd[i] = make([]float64, m)
		for j := range fd[i] {
			fd[i][j] = cost(a[i], b[j])
		}
	}

	// Create (n+1) x (m+1) cost matrix initialized to infinity
	dtw := make([][]float64, n+1)
	for i := range dtw {
		dtw[i] = make([]float64, m+1)
		for j := range dtw[i] {
			dtw[i][j] = math.Inf(1)
		}
	}
	dtw[0][0] = 0

	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			dtw[i][j] = fd[i-1][j-1] + min3(dtw[i-1][j-1], dtw[i-1][j], dtw[i][j-1])
		}
	}

	// Backtrack from (n, m)
	var path []Coord
	i, j := n, m
	for i > 0 && j > 0 {
		path = append(path, Coord{I: i - 1, J: j - 1})

		bi, bj := i-1, j-1
		best := dtw[i-1][j-1]
		if dtw[i-1][j] < best {
			best = dtw[i-1][j]
			bi, bj = i-1, j
		}
		if dtw[i][j-1] < best {
			bi, bj = i, j-1
		}
		i, j = bi, bj
	}

	// Reverse into forward order
	for l, r := 0, len(path)-1; l < r; l, r = l+1, r-1 {
		path[l], path[r] = path[r], path[l]
	}

	var sum float64
	maxCost := math.Inf(-1)
	for _, c := range path {
		v := fd[c.I][c.J]
		sum += v
		if v > maxCost {
			maxCost = v
		}
	}

	return Alignment{
		AvgDistance: sum / float64(len(path)),
		MaxDistance: maxCost,
		PathLength:  len(path),
		TotalCost:   dtw[n][m],
		Path:        path,
	}
}

// DTWCost returns only the accumulated DTW cost of a and b, keeping two rows
// of the matrix. The rows span the shorter sequence, so memory is
// O(min(len(a), len(b))). Returns +Inf if either sequence is empty.
func DTWCost[T any](a, b []T, cost func(T, T) float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return math.Inf(1)
	}

	// The recurrence is symmetric, so iterate over the longer sequence.
	swapped := false
	if len(b) > len(a) {
		a, b = b, a
		swapped = true
	}
	pair := func(x, y T) float64 {
		if swapped {
			return cost(y, x)
		}
		return cost(x, y)
	}

	m := len(b)
	prev := make([]float64, m+1)
	curr := make([]float64, m+1)
	for j := range prev {
		prev[j] = math.Inf(1)
	}
	prev[0] = 0

	for i := 1; i <= len(a); i++ {
		curr[0] = math.Inf(1)
		for j := 1; j <= m; j++ {
			curr[j] = pair(a[i-1], b[j-1]) + min3(prev[j-1], prev[j], curr[j-1])
		}
		prev, curr = curr, prev
	}

	return prev[m]
}

// min3 returns the minimum of three float64 values.
func min3(a, b, c float64) float64 {
	if a <= b && a <= c {
		return a
	}
	if b <= c {
		return b
	}
	return c
}
