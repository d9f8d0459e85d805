// Package graph builds the note corpus's link graph and computes the
// structural metrics the composite scorer and fusion signal consume:
// authority, communities, bridges, betweenness, and personalized walks.
package graph

import (
	"math/rand"
	"sort"
	"strings"

	"github.com/aayoawoyemi/ori-mnemos/internal/logging"
	"github.com/aayoawoyemi/ori-mnemos/internal/note"
	"gonum.org/v1/gonum/graph/community"
	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/simple"
)

// Graph is the arena-indexed link graph: titles are mapped to dense
// int64 node IDs, and all metric algorithms operate over adjacency
// tables keyed by ID rather than holding direct references between
// records.
type Graph struct {
	titleToID map[string]int64
	idToTitle []string

	outgoing map[string]map[string]bool // title -> set of link targets
	incoming map[string]map[string]bool // title -> set of sources

	directed   *simple.DirectedGraph
	undirected *simple.UndirectedGraph

	projects map[string][]string // title -> project tags, for the cross-project bridge condition
}

// Build constructs a Graph from a corpus. Link targets that name a note
// absent from the corpus (dangling links) still occupy adjacency-table
// entries for DanglingTargets/Orphans purposes but are not added as graph
// nodes, since the graph algorithms only operate over real notes.
func Build(notes []note.Note, extractLinks func(body string) []string) *Graph {
	timer := logging.StartTimer(logging.CategoryGraph, "Build")
	defer timer.Stop()

	g := &Graph{
		titleToID:  make(map[string]int64),
		outgoing:   make(map[string]map[string]bool),
		incoming:   make(map[string]map[string]bool),
		projects:   make(map[string][]string),
		directed:   simple.NewDirectedGraph(),
		undirected: simple.NewUndirectedGraph(),
	}

	for _, n := range notes {
		g.addTitle(n.Title)
		g.projects[n.Title] = n.Project
	}
	for id, title := range g.idToTitle {
		_ = id
		g.directed.AddNode(simple.Node(g.titleToID[title]))
		g.undirected.AddNode(simple.Node(g.titleToID[title]))
	}

	titleSet := make(map[string]bool, len(notes))
	for _, n := range notes {
		titleSet[n.Title] = true
	}

	for _, n := range notes {
		targets := extractLinks(n.Body)
		out := make(map[string]bool, len(targets))
		for _, t := range targets {
			if t == n.Title {
				continue // self-loops ignored by metrics
			}
			out[t] = true
			if g.incoming[t] == nil {
				g.incoming[t] = make(map[string]bool)
			}
			g.incoming[t][n.Title] = true

			if titleSet[t] {
				fromID, toID := g.titleToID[n.Title], g.titleToID[t]
				if !g.directed.HasEdgeFromTo(fromID, toID) {
					g.directed.SetEdge(g.directed.NewEdge(simple.Node(fromID), simple.Node(toID)))
				}
				if !g.undirected.HasEdgeBetween(fromID, toID) {
					g.undirected.SetEdge(g.undirected.NewEdge(simple.Node(fromID), simple.Node(toID)))
				}
			}
		}
		g.outgoing[n.Title] = out
	}

	return g
}

func (g *Graph) addTitle(title string) int64 {
	if id, ok := g.titleToID[title]; ok {
		return id
	}
	id := int64(len(g.idToTitle))
	g.titleToID[title] = id
	g.idToTitle = append(g.idToTitle, title)
	return id
}

// Titles returns every note title known to the graph, in insertion order.
func (g *Graph) Titles() []string {
	out := make([]string, len(g.idToTitle))
	copy(out, g.idToTitle)
	return out
}

// Outgoing returns the link targets of title (including dangling ones).
func (g *Graph) Outgoing(title string) []string {
	return setKeys(g.outgoing[title])
}

// Incoming returns the titles linking to title.
func (g *Graph) Incoming(title string) []string {
	return setKeys(g.incoming[title])
}

func setKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Orphans returns titles with no incoming links.
func (g *Graph) Orphans() []string {
	var out []string
	for _, title := range g.idToTitle {
		if len(g.incoming[title]) == 0 {
			out = append(out, title)
		}
	}
	sort.Strings(out)
	return out
}

// DanglingTargets returns link targets that name no note in the corpus.
func (g *Graph) DanglingTargets() []string {
	known := make(map[string]bool, len(g.idToTitle))
	for _, t := range g.idToTitle {
		known[t] = true
	}
	seen := make(map[string]bool)
	var out []string
	for _, targets := range g.outgoing {
		for t := range targets {
			if !known[t] && !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	sort.Strings(out)
	return out
}

// CrossProjectNotes returns titles tagged with two or more distinct
// project tags and in-degree >= 3, one leg of the bridge condition also
// exposed standalone for the cross-project query.
func (g *Graph) CrossProjectNotes() []string {
	var out []string
	for _, title := range g.idToTitle {
		if len(g.projects[title]) >= 2 && len(g.incoming[title]) >= 3 {
			out = append(out, title)
		}
	}
	sort.Strings(out)
	return out
}

// InDegree returns the number of distinct notes linking to title.
func (g *Graph) InDegree(title string) int {
	return len(g.incoming[title])
}

// Metrics bundles the structural metrics computed in one pass.
type Metrics struct {
	Authority     map[string]float64 // PageRank-style authority, sums to 1
	Communities   map[string]int     // title -> community ID
	NumCommunities int
	Bridges       map[string]bool
	Betweenness   map[string]float64
}

// Compute runs every structural metric over g: authority, betweenness,
// communities, and bridges.
func (g *Graph) Compute(alpha, bridgeHubMultiplier float64) Metrics {
	timer := logging.StartTimer(logging.CategoryGraph, "Compute")
	defer timer.Stop()

	m := Metrics{
		Authority:   g.authority(alpha),
		Betweenness: g.betweenness(),
	}
	m.Communities, m.NumCommunities = g.communities()
	m.Bridges = g.bridges(m.Communities, bridgeHubMultiplier)
	return m
}

func (g *Graph) authority(alpha float64) map[string]float64 {
	if g.directed.Nodes().Len() == 0 {
		return map[string]float64{}
	}
	raw := network.PageRank(g.directed, alpha, 1e-6)
	out := make(map[string]float64, len(raw))
	for id, score := range raw {
		out[g.idToTitle[id]] = score
	}
	return out
}

func (g *Graph) betweenness() map[string]float64 {
	if g.undirected.Nodes().Len() == 0 {
		return map[string]float64{}
	}
	raw := network.Betweenness(g.undirected)
	out := make(map[string]float64, len(raw))
	for id, score := range raw {
		out[g.idToTitle[id]] = score
	}
	return out
}

// communities runs modularity clustering on the undirected view. Ordering
// of community IDs is not meaningful; only equality of IDs within a run
// matters.
func (g *Graph) communities() (map[string]int, int) {
	out := make(map[string]int, len(g.idToTitle))
	if g.undirected.Nodes().Len() == 0 {
		return out, 0
	}

	reduced := community.Modularize(g.undirected, 1.0, rand.New(rand.NewSource(1)))
	clusters := reduced.Communities()
	for cid, nodes := range clusters {
		for _, n := range nodes {
			out[g.idToTitle[n.ID()]] = cid
		}
	}
	return out, len(clusters)
}

// bridges computes the union of four bridge conditions: articulation
// points, in-degree hubs, map/index-named notes, and cross-project
// connectors.
func (g *Graph) bridges(communities map[string]int, hubMultiplier float64) map[string]bool {
	bridges := make(map[string]bool)

	for id := range g.articulationPoints() {
		bridges[g.idToTitle[id]] = true
	}

	median := g.medianInDegree()
	for _, title := range g.idToTitle {
		indeg := float64(len(g.incoming[title]))
		if median > 0 && indeg > hubMultiplier*median {
			bridges[title] = true
		}
		lower := strings.ToLower(title)
		if strings.HasSuffix(lower, " map") || lower == "index" {
			bridges[title] = true
		}
		if len(g.projects[title]) >= 2 && len(g.incoming[title]) >= 3 {
			bridges[title] = true
		}
	}

	return bridges
}

func (g *Graph) medianInDegree() float64 {
	if len(g.idToTitle) == 0 {
		return 0
	}
	degs := make([]float64, len(g.idToTitle))
	for i, title := range g.idToTitle {
		degs[i] = float64(len(g.incoming[title]))
	}
	sort.Float64s(degs)
	mid := len(degs) / 2
	if len(degs)%2 == 0 {
		return (degs[mid-1] + degs[mid]) / 2
	}
	return degs[mid]
}

// articulationPoints runs a standard low-link DFS over the undirected
// view to find classic cut vertices, one of the bridge conditions.
func (g *Graph) articulationPoints() map[int64]bool {
	var timeIdx int
	disc := make(map[int64]int)
	low := make(map[int64]int)
	parent := make(map[int64]int64)
	ap := make(map[int64]bool)
	const noParent int64 = -1

	var dfs func(v int64)
	dfs = func(v int64) {
		timeIdx++
		disc[v] = timeIdx
		low[v] = timeIdx
		childCount := 0

		it := g.undirected.From(v)
		for it.Next() {
			u := it.Node().ID()
			if disc[u] == 0 {
				parent[u] = v
				childCount++
				dfs(u)
				if low[u] < low[v] {
					low[v] = low[u]
				}
				if parent[v] == noParent && childCount > 1 {
					ap[v] = true
				}
				if parent[v] != noParent && low[u] >= disc[v] {
					ap[v] = true
				}
			} else if u != parent[v] {
				if disc[u] < low[v] {
					low[v] = disc[u]
				}
			}
		}
	}

	nodes := g.undirected.Nodes()
	for nodes.Next() {
		id := nodes.Node().ID()
		if disc[id] == 0 {
			parent[id] = noParent
			dfs(id)
		}
	}
	return ap
}

// PersonalizedWalk runs a fixed-iteration power iteration of a damped
// walk whose teleport distribution concentrates on seeds (uniform over
// all nodes when seeds is empty or names only unknown titles). Returns a
// score per title summing to 1.
func (g *Graph) PersonalizedWalk(seeds []string, alpha float64) map[string]float64 {
	n := len(g.idToTitle)
	if n == 0 {
		return map[string]float64{}
	}

	teleport := make([]float64, n)
	var seedIDs []int64
	for _, s := range seeds {
		if id, ok := g.titleToID[s]; ok {
			seedIDs = append(seedIDs, id)
		}
	}
	if len(seedIDs) == 0 {
		for i := range teleport {
			teleport[i] = 1.0 / float64(n)
		}
	} else {
		w := 1.0 / float64(len(seedIDs))
		for _, id := range seedIDs {
			teleport[id] = w
		}
	}

	rank := make([]float64, n)
	copy(rank, teleport)

	adj := make([][]int64, n)
	outDeg := make([]int, n)
	nodes := g.directed.Nodes()
	for nodes.Next() {
		from := nodes.Node().ID()
		to := g.directed.From(from)
		for to.Next() {
			adj[from] = append(adj[from], to.Node().ID())
		}
		outDeg[from] = len(adj[from])
	}

	const iterations = 20
	for iter := 0; iter < iterations; iter++ {
		next := make([]float64, n)
		for i := range next {
			next[i] = (1 - alpha) * teleport[i]
		}
		var danglingMass float64
		for i := int64(0); i < int64(n); i++ {
			if outDeg[i] == 0 {
				danglingMass += rank[i]
				continue
			}
			share := alpha * rank[i] / float64(outDeg[i])
			for _, to := range adj[i] {
				next[to] += share
			}
		}
		for i := range next {
			next[i] += alpha * danglingMass * teleport[i]
		}
		rank = next
	}

	out := make(map[string]float64, n)
	for i, title := range g.idToTitle {
		out[title] = rank[i]
	}
	return out
}

// MaxAuthority returns the largest authority value in m, or 0 if empty.
func MaxAuthority(m map[string]float64) float64 {
	var max float64
	for _, v := range m {
		if v > max {
			max = v
		}
	}
	return max
}
