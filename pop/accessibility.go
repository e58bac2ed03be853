package pop

// accessMatrix is the memoized-transitive-closure accessibility matrix
// of spec §4.5: a dense table of per-cell tokens, bumped by 2 at the
// start of every popped internal plan so stale BFS results are
// invalidated without ever clearing the backing memory.
type accessMatrix struct {
	n      int
	indexT int
	indexF int
	cell   [][]int
	adj    [][]int
}

func newAccessMatrix(n int) *accessMatrix {
	cell := make([][]int, n)
	adj := make([][]int, n)
	for i := range cell {
		cell[i] = make([]int, n)
	}
	return &accessMatrix{n: n, indexT: 1, indexF: 2, cell: cell, adj: adj}
}

// rebuild is called once per popped internal plan: it bumps the token
// pair (invalidating every memoized cell at once) and replaces the
// adjacency list with the ordering edges of the plan being examined,
// since sibling branches in the DFS can carry different ordering sets
// over the same fixed step index range.
func (m *accessMatrix) rebuild(edges [][2]int) {
	m.indexT += 2
	m.indexF += 2
	for i := range m.adj {
		m.adj[i] = m.adj[i][:0]
	}
	for _, e := range edges {
		m.adj[e[0]] = append(m.adj[e[0]], e[1])
	}
}

// before reports whether step i precedes step j in every linearization
// consistent with the current ordering set, memoizing every node
// reached while answering via a single BFS from i.
func (m *accessMatrix) before(i, j int) bool {
	if i == j {
		return false
	}
	switch m.cell[i][j] {
	case m.indexT:
		return true
	case m.indexF:
		return false
	}
	visited := map[int]bool{i: true}
	queue := []int{i}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range m.adj[cur] {
			if visited[n] {
				continue
			}
			visited[n] = true
			m.cell[i][n] = m.indexT
			queue = append(queue, n)
		}
	}
	if m.cell[i][j] != m.indexT {
		m.cell[i][j] = m.indexF
	}
	return m.cell[i][j] == m.indexT
}
