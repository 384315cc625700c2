package ecs

// WorldStats is a point-in-time summary of a World.
type WorldStats struct {
	Step             uint64
	TotalEntityCount int
	PendingCount     int
	DirtyCount       int
	FamilyCount      int
	MaskCount        int
	ServiceCount     int
	HierarchyVersion uint64
	FamilyBreakdown  []FamilyStats
	ComponentCounts  []ComponentStats
}

// FamilyStats describes one family.
type FamilyStats struct {
	ID              int
	Components      []string
	Optional        []string
	EntityCount     int
	PendingRemovals int
}

// ComponentStats is the number of allocated components of one type.
type ComponentStats struct {
	Type  ComponentType
	Name  string
	Count int
}

// CollectStats gathers the current WorldStats. It reads world state and must run
// on the update goroutine.
func (w *World) CollectStats() WorldStats {
	stats := WorldStats{
		Step:             w.step,
		TotalEntityCount: len(w.live),
		PendingCount:     len(w.pending),
		DirtyCount:       len(w.dirty),
		FamilyCount:      len(w.families),
		MaskCount:        w.masks.Len(),
		HierarchyVersion: w.hierarchyVersion,
		FamilyBreakdown:  make([]FamilyStats, 0, len(w.families)),
	}

	w.services.mu.Lock()
	stats.ServiceCount = len(w.services.byType)
	w.services.mu.Unlock()

	for _, f := range w.families {
		stats.FamilyBreakdown = append(stats.FamilyBreakdown, FamilyStats{
			ID:              f.id,
			Components:      w.registry.Names(w.masks.Mask(f.key.Include)),
			Optional:        w.registry.Names(w.masks.Mask(f.key.Optional)),
			EntityCount:     f.Count(),
			PendingRemovals: f.PendingRemovals(),
		})
	}

	for ct, p := range w.pools {
		if p == nil {
			continue
		}
		stats.ComponentCounts = append(stats.ComponentCounts, ComponentStats{
			Type:  ComponentType(ct),
			Name:  w.registry.Name(ComponentType(ct)),
			Count: p.len(),
		})
	}

	return stats
}
