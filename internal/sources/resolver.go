package sources

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/tejusbharadwaj/energyflow/internal/models"
)

// Resolve groups the points of every source by category.
//
// Points keep the order in which their sources were configured. A meter id
// may appear only once across all sources. The returned group's Version is a
// hash of the resolved layout, so two configurations that resolve to the same
// points share a version.
func Resolve(srcs []Source) (models.SourceGroup, error) {
	group := models.SourceGroup{
		Points: make(map[models.Category][]models.MonitoredPoint),
	}

	seen := make(map[string]models.Category)
	for _, src := range srcs {
		switch s := src.(type) {
		case GasSource:
			if group.GasUnit == "" {
				group.GasUnit = s.Unit
			}
		case CO2Signal:
			group.CarbonRegion = s.Region
		}

		for _, p := range src.points() {
			if p.ID == "" {
				return models.SourceGroup{}, fmt.Errorf("%s: %w", p.Category, ErrMissingMeter)
			}
			if prev, ok := seen[p.ID]; ok {
				return models.SourceGroup{}, fmt.Errorf("%w: %s used by %s and %s", ErrDuplicatePoint, p.ID, prev, p.Category)
			}
			seen[p.ID] = p.Category
			group.Points[p.Category] = append(group.Points[p.Category], p)
		}
	}

	group.Version = version(group)
	return group, nil
}

// ResolveFile loads, parses and resolves a sources file.
func ResolveFile(path string) (models.SourceGroup, error) {
	f, err := LoadFile(path)
	if err != nil {
		return models.SourceGroup{}, err
	}
	srcs, err := f.Parse()
	if err != nil {
		return models.SourceGroup{}, err
	}
	return Resolve(srcs)
}

func version(g models.SourceGroup) uint64 {
	var b strings.Builder
	cats := make([]string, 0, len(g.Points))
	for c := range g.Points {
		cats = append(cats, string(c))
	}
	sort.Strings(cats)
	for _, c := range cats {
		b.WriteString(c)
		b.WriteByte('=')
		for _, p := range g.Points[models.Category(c)] {
			b.WriteString(p.ID)
			b.WriteByte('/')
			b.WriteString(p.Unit)
			b.WriteByte(',')
		}
		b.WriteByte(';')
	}
	b.WriteString(g.GasUnit)
	b.WriteByte(';')
	b.WriteString(g.CarbonRegion)
	return xxhash.Sum64String(b.String())
}
