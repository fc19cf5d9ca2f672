package recurrence

import (
	"testing"

	"cloud.google.com/go/civil"
)

func BenchmarkProject(b *testing.B) {
	anchor := civil.Date{Year: 2024, Month: 1, Day: 1}
	templates := make([]Template, 0, 14)
	for day := 1; day <= 7; day++ {
		templates = append(templates, Template{ID: "weekly", Title: "weekly", Anchor: anchor, Rule: Weekly(day)})
		templates = append(templates, Template{ID: "monthly", Title: "monthly", Anchor: anchor, Rule: Monthly(day * 4)})
	}
	w := Window{Start: anchor, End: anchor.AddDays(365)}
	tombstones := []Marker{{Title: "weekly", Date: anchor.AddDays(14)}}
	suppressions := NewSuppressions(nil, tombstones)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		result, err := Project(templates, w, suppressions)
		if err != nil {
			b.Fatalf("unexpected error: %v", err)
		}
		if len(result.Occurrences) == 0 {
			b.Fatal("expected occurrences to be generated")
		}
	}
}
