package motion

// minWindow is the smallest reference window worth warping against.
const minWindow = 4

// SelectWindow returns the half-open range [start, end) of a reference of n
// frames to compare against m buffered user frames, centered on the
// synchronized index idx. The window holds min(n, max(4, 3*m)) frames and is
// shifted back inside [0, n) rather than shrunk when idx is near either end.
func SelectWindow(n, idx, m int) (start, end int) {
	if n <= 0 {
		return 0, 0
	}

	size := min(n, max(minWindow, 3*m))

	start = idx - size/2
	if start < 0 {
		start = 0
	}
	end = start + size
	if end > n {
		end = n
		start = max(0, end-size)
	}
	return start, end
}
