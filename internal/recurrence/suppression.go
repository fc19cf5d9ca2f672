package recurrence

import "cloud.google.com/go/civil"

// Marker identifies one occurrence addressed by a standalone record: an
// override (edited or completed instance) or a tombstone (deleted instance).
//
// SeriesID is preferred for matching. Markers written before series ids
// existed carry only a title and match any template with that title.
type Marker struct {
	SeriesID string
	Title    string
	Date     civil.Date
}

type seriesKey struct {
	date   civil.Date
	series string
}

type titleKey struct {
	date  civil.Date
	title string
}

type markerSet struct {
	bySeries map[seriesKey]struct{}
	byTitle  map[titleKey]struct{}
}

func newMarkerSet(markers []Marker) markerSet {
	set := markerSet{
		bySeries: make(map[seriesKey]struct{}, len(markers)),
		byTitle:  make(map[titleKey]struct{}),
	}
	for _, m := range markers {
		if m.SeriesID != "" {
			set.bySeries[seriesKey{date: m.Date, series: m.SeriesID}] = struct{}{}
			continue
		}
		set.byTitle[titleKey{date: m.Date, title: m.Title}] = struct{}{}
	}
	return set
}

// match returns whether the set covers the occurrence and whether the hit came
// from the title fallback.
func (s markerSet) match(seriesID, title string, d civil.Date) (hit bool, byTitle bool) {
	if seriesID != "" {
		if _, ok := s.bySeries[seriesKey{date: d, series: seriesID}]; ok {
			return true, false
		}
	}
	if _, ok := s.byTitle[titleKey{date: d, title: title}]; ok {
		return true, true
	}
	return false, false
}

// Suppressions indexes overrides and tombstones for a query window.
type Suppressions struct {
	overridden markerSet
	deleted    markerSet
}

// NewSuppressions builds the overridden and deleted lookup sets.
func NewSuppressions(overrides, tombstones []Marker) *Suppressions {
	return &Suppressions{
		overridden: newMarkerSet(overrides),
		deleted:    newMarkerSet(tombstones),
	}
}

// Overridden reports whether a standalone record replaces the occurrence.
func (s *Suppressions) Overridden(t Template, d civil.Date) bool {
	if s == nil {
		return false
	}
	hit, _ := s.overridden.match(t.series(), t.Title, d)
	return hit
}

// Deleted reports whether a tombstone removes the occurrence.
func (s *Suppressions) Deleted(t Template, d civil.Date) bool {
	if s == nil {
		return false
	}
	hit, _ := s.deleted.match(t.series(), t.Title, d)
	return hit
}

// Suppressed reports whether the occurrence is overridden or deleted. The
// second result is true when the decision relied on title matching.
func (s *Suppressions) Suppressed(t Template, d civil.Date) (bool, bool) {
	if s == nil {
		return false, false
	}
	if hit, byTitle := s.overridden.match(t.series(), t.Title, d); hit {
		return true, byTitle
	}
	return s.deleted.match(t.series(), t.Title, d)
}
