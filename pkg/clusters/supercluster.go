package clusters

import (
	"container/list"
	"fmt"
	"sort"
)

// Supercluster is a connected component of linked base clusters.
type Supercluster struct {
	ID                   int      `json:"cluster_id"` // 1 = largest
	Reps                 []string `json:"reps"`       // ascending
	TotalMemberCount     int      `json:"cluster_count"`
	LargestSubclusterRep string   `json:"cluster_rep"`
}

// Components returns the connected components of the linkage relation,
// treating it as undirected. Names only seen as a link target are included.
// Each component is sorted, and components are ordered by their first name.
func Components(linkages Linkages) [][]string {
	// Undirected neighbour lists so targets without their own entry are reachable
	neighbors := make(map[string][]string, len(linkages))
	for a, linked := range linkages {
		if _, ok := neighbors[a]; !ok {
			neighbors[a] = nil
		}
		for b := range linked {
			if a == b {
				continue
			}
			neighbors[a] = append(neighbors[a], b)
			neighbors[b] = append(neighbors[b], a)
		}
	}

	names := make([]string, 0, len(neighbors))
	for name := range neighbors {
		names = append(names, name)
	}
	sort.Strings(names)

	visited := make(map[string]bool, len(names))
	components := make([][]string, 0)

	// BFS to find each component
	for _, start := range names {
		if visited[start] {
			continue
		}

		component := make([]string, 0)
		queue := list.New()
		queue.PushBack(start)
		visited[start] = true

		for queue.Len() > 0 {
			name := queue.Remove(queue.Front()).(string)
			component = append(component, name)

			for _, next := range neighbors[name] {
				if !visited[next] {
					visited[next] = true
					queue.PushBack(next)
				}
			}
		}

		sort.Strings(component)
		components = append(components, component)
	}

	return components
}

// Complete appends a singleton component for every cluster of set that does
// not appear in components.
func Complete(components [][]string, set *Set) [][]string {
	seen := make(map[string]bool)
	for _, c := range components {
		for _, rep := range c {
			seen[rep] = true
		}
	}

	out := make([][]string, len(components), len(components)+set.Len())
	copy(out, components)
	for _, rep := range set.Reps() {
		if !seen[rep] {
			out = append(out, []string{rep})
		}
	}
	return out
}

// Materialize sizes and ranks components. Superclusters are ordered by total
// member count descending, then by LargestSubclusterRep, and numbered from 1.
// Every cluster of set must appear in exactly one component.
func Materialize(components [][]string, set *Set) ([]Supercluster, error) {
	seen := make(map[string]bool, set.Len())
	scs := make([]Supercluster, 0, len(components))
	members := make(map[string]struct{}, set.TotalMembers())
	total := 0

	for _, component := range components {
		sc := Supercluster{Reps: make([]string, len(component))}
		copy(sc.Reps, component)
		sort.Strings(sc.Reps)

		largest := -1
		for _, rep := range sc.Reps {
			if seen[rep] {
				return nil, fmt.Errorf("%w: %s appears more than once", ErrMisplacedCluster, rep)
			}
			seen[rep] = true

			c, ok := set.Get(rep)
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrUnknownCluster, rep)
			}

			sc.TotalMemberCount += c.Size()
			// Reps are sorted, so ties keep the smallest name
			if c.Size() > largest {
				largest = c.Size()
				sc.LargestSubclusterRep = rep
			}
			for _, m := range c.Members {
				members[m.Name] = struct{}{}
			}
		}

		total += sc.TotalMemberCount
		scs = append(scs, sc)
	}

	if len(seen) != set.Len() {
		return nil, fmt.Errorf("%w: %d of %d clusters placed", ErrMisplacedCluster, len(seen), set.Len())
	}
	if len(members) != total || total != set.TotalMembers() {
		return nil, fmt.Errorf("%w: %d distinct members, %d counted, %d in clusters", ErrMemberCountMismatch, len(members), total, set.TotalMembers())
	}

	sort.SliceStable(scs, func(i, j int) bool {
		if scs[i].TotalMemberCount != scs[j].TotalMemberCount {
			return scs[i].TotalMemberCount > scs[j].TotalMemberCount
		}
		return scs[i].LargestSubclusterRep < scs[j].LargestSubclusterRep
	})
	for i := range scs {
		scs[i].ID = i + 1
	}

	return scs, nil
}
