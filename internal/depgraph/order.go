// SPDX-License-Identifier: MPL-2.0

package depgraph

// Layers groups modules into levels: every module's dependencies sit in
// earlier levels. Within a level modules keep discovery order. Secondary
// outputs are not part of the result.
//
// It is Kahn's algorithm run level by level; leftover modules mean the
// manifests contain a cycle and are reported as a CycleError.
func (g *Graph) Layers() ([][]string, error) {
	if len(g.modules) == 0 {
		return nil, nil
	}

	inDegree := make(map[string]int, len(g.modules))
	dependents := make(map[string][]string, len(g.modules))
	for _, m := range g.modules {
		inDegree[m.Name] = len(g.edges[m.Name])
		for _, dep := range g.edges[m.Name] {
			dependents[dep] = append(dependents[dep], m.Name)
		}
	}

	var level []string
	for _, m := range g.modules {
		if inDegree[m.Name] == 0 {
			level = append(level, m.Name)
		}
	}

	var layers [][]string
	placed := 0
	for len(level) > 0 {
		layers = append(layers, level)
		placed += len(level)

		ready := make(map[string]bool)
		for _, name := range level {
			for _, d := range dependents[name] {
				inDegree[d]--
				if inDegree[d] == 0 {
					ready[d] = true
				}
			}
		}
		level = nil
		for _, m := range g.modules {
			if ready[m.Name] {
				level = append(level, m.Name)
			}
		}
	}

	if placed != len(g.modules) {
		var cycle []string
		for _, m := range g.modules {
			if inDegree[m.Name] > 0 {
				cycle = append(cycle, m.Name)
			}
		}
		return nil, &CycleError{Cycle: cycle}
	}
	return layers, nil
}

// Order flattens Layers into one dependency-first sequence.
func (g *Graph) Order() ([]string, error) {
	layers, err := g.Layers()
	if err != nil {
		return nil, err
	}
	var out []string
	for _, l := range layers {
		out = append(out, l...)
	}
	return out, nil
}
