package recurrence

import (
	"errors"
	"sort"
	"strings"

	"cloud.google.com/go/civil"
)

// ErrInvalidDateRange indicates a window whose start falls after its end.
var ErrInvalidDateRange = errors.New("recurrence: window start is after window end")

// Window is a closed interval of calendar dates.
type Window struct {
	Start civil.Date
	End   civil.Date
}

// Validate rejects windows whose start falls after their end.
func (w Window) Validate() error {
	if w.Start.After(w.End) {
		return ErrInvalidDateRange
	}
	return nil
}

// Contains reports whether d lies within the window, bounds included.
func (w Window) Contains(d civil.Date) bool {
	return !d.Before(w.Start) && !d.After(w.End)
}

// Template is a recurring record as seen by the engine.
type Template struct {
	ID       string
	SeriesID string
	Title    string
	// Anchor is the template's own due date; it is represented by the
	// template record itself and is never projected.
	Anchor civil.Date
	Rule   Rule
}

func (t Template) series() string {
	if t.SeriesID != "" {
		return t.SeriesID
	}
	return t.ID
}

// Occurrence is one projected instance of a template.
type Occurrence struct {
	ID         string
	TemplateID string
	Date       civil.Date
}

// Result carries the projection output.
type Result struct {
	Occurrences []Occurrence
	// Skipped lists ids of templates whose rule failed validation.
	Skipped []string
	// AmbiguousTitles lists titles where a title-only override or tombstone
	// matched a title shared by several templates.
	AmbiguousTitles []string
}

// Project expands templates into virtual occurrences within the window.
//
// The engine enforces the following semantics:
//   - A template never projects before its anchor, and never onto its anchor.
//   - Every date in the closed window is evaluated once per template.
//   - Dates covered by an override or tombstone are suppressed.
//   - Templates with invalid rules are skipped and reported, not fatal.
//
// Project keeps no state between calls; identical inputs yield identical output.
func Project(templates []Template, window Window, suppressions *Suppressions) (Result, error) {
	if err := window.Validate(); err != nil {
		return Result{}, err
	}

	titleCounts := make(map[string]int, len(templates))
	for _, t := range templates {
		if t.Rule.Repeats() && t.Rule.Validate() == nil {
			titleCounts[t.Title]++
		}
	}

	var result Result
	ambiguous := make(map[string]struct{})

	for _, t := range templates {
		if !t.Rule.Repeats() {
			continue
		}
		if err := t.Rule.Validate(); err != nil {
			result.Skipped = append(result.Skipped, t.ID)
			continue
		}

		current := window.Start
		if t.Anchor.After(current) {
			current = t.Anchor
		}

		for ; !current.After(window.End); current = current.AddDays(1) {
			if !t.Rule.Matches(current) || current == t.Anchor {
				continue
			}
			suppressed, byTitle := suppressions.Suppressed(t, current)
			if suppressed {
				if byTitle && titleCounts[t.Title] > 1 {
					ambiguous[t.Title] = struct{}{}
				}
				continue
			}
			result.Occurrences = append(result.Occurrences, Occurrence{
				ID:         OccurrenceID(t.ID, current),
				TemplateID: t.ID,
				Date:       current,
			})
		}
	}

	sort.SliceStable(result.Occurrences, func(i, j int) bool {
		a, b := result.Occurrences[i], result.Occurrences[j]
		if a.Date != b.Date {
			return a.Date.Before(b.Date)
		}
		return a.TemplateID < b.TemplateID
	})

	for title := range ambiguous {
		result.AmbiguousTitles = append(result.AmbiguousTitles, title)
	}
	sort.Strings(result.AmbiguousTitles)

	return result, nil
}

const occurrenceIDSeparator = "_"

// OccurrenceID builds the synthetic identifier of a projected occurrence.
func OccurrenceID(templateID string, d civil.Date) string {
	return templateID + occurrenceIDSeparator + d.String()
}

// ParseOccurrenceID splits a synthetic identifier into template id and date.
// It reports false for identifiers that do not end in a valid date.
func ParseOccurrenceID(id string) (string, civil.Date, bool) {
	idx := strings.LastIndex(id, occurrenceIDSeparator)
	if idx <= 0 || idx == len(id)-1 {
		return "", civil.Date{}, false
	}
	d, err := civil.ParseDate(id[idx+1:])
	if err != nil {
		return "", civil.Date{}, false
	}
	return id[:idx], d, true
}
