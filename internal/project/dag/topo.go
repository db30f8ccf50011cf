package dag

import (
	"fmt"
	"slices"

	"fortio.org/safecast"
)

// Topo is the result of ordering the loaded modules.
type Topo struct {
	Order   []ModuleID   // импортируемые раньше импортирующих
	Batches [][]ModuleID // слои: модули слоя зависят только от предыдущих слоёв
	Cyclic  bool
	Cycles  []ModuleID // модули в цикле или за ним
}

// ToposortKahn layers the loaded modules with Kahn's algorithm. Modules
// that are only imported, never loaded, are skipped.
func ToposortKahn(g Graph) *Topo {
	pending := slices.Clone(g.Pending)
	topo := &Topo{}

	var layer []ModuleID
	remaining := 0
	for i, present := range g.Present {
		if !present {
			continue
		}
		remaining++
		if pending[i] == 0 {
			layer = append(layer, toModuleID(i))
		}
	}

	for len(layer) > 0 {
		topo.Batches = append(topo.Batches, layer)
		topo.Order = append(topo.Order, layer...)
		remaining -= len(layer)

		var next []ModuleID
		for _, id := range layer {
			for _, user := range g.Users[id] {
				if !g.Present[user] {
					continue
				}
				pending[user]--
				if pending[user] == 0 {
					next = append(next, user)
				}
			}
		}
		slices.Sort(next)
		layer = next
	}

	if remaining > 0 {
		topo.Cyclic = true
		for i, present := range g.Present {
			if present && pending[i] > 0 {
				topo.Cycles = append(topo.Cycles, toModuleID(i))
			}
		}
	}
	return topo
}

func toModuleID(i int) ModuleID {
	id, err := safecast.Conv[ModuleID](i)
	if err != nil {
		panic(fmt.Errorf("module id overflow: %w", err))
	}
	return id
}
