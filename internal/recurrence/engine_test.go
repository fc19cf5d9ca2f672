package recurrence

import (
	"errors"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/google/go-cmp/cmp"
)

func mustDate(t testing.TB, value string) civil.Date {
	t.Helper()
	d, err := civil.ParseDate(value)
	if err != nil {
		t.Fatalf("invalid date %q: %v", value, err)
	}
	return d
}

func window(t testing.TB, start, end string) Window {
	t.Helper()
	return Window{Start: mustDate(t, start), End: mustDate(t, end)}
}

func occurrenceDates(result Result) []string {
	dates := make([]string, 0, len(result.Occurrences))
	for _, occ := range result.Occurrences {
		dates = append(dates, occ.Date.String())
	}
	return dates
}

func TestProject(t *testing.T) {
	t.Parallel()

	teamSync := Template{ID: "t-sync", Title: "Team Sync", Anchor: civil.Date{Year: 2024, Month: 1, Day: 1}, Rule: Weekly(1)}
	rent := Template{ID: "t-rent", Title: "Rent", Anchor: civil.Date{Year: 2024, Month: 1, Day: 31}, Rule: Monthly(LastDayOfMonth)}

	t.Run("weekly template skips its own anchor", func(t *testing.T) {
		t.Parallel()

		result, err := Project([]Template{teamSync}, window(t, "2024-01-01", "2024-01-31"), nil)
		if err != nil {
			t.Fatalf("Project returned error: %v", err)
		}

		want := []string{"2024-01-08", "2024-01-15", "2024-01-22", "2024-01-29"}
		if diff := cmp.Diff(want, occurrenceDates(result)); diff != "" {
			t.Fatalf("unexpected occurrences (-want +got):\n%s", diff)
		}
	})

	t.Run("override record suppresses its occurrence", func(t *testing.T) {
		t.Parallel()

		overrides := []Marker{{Title: "Team Sync", Date: mustDate(t, "2024-01-15")}}
		result, err := Project([]Template{teamSync}, window(t, "2024-01-01", "2024-01-31"), NewSuppressions(overrides, nil))
		if err != nil {
			t.Fatalf("Project returned error: %v", err)
		}

		want := []string{"2024-01-08", "2024-01-22", "2024-01-29"}
		if diff := cmp.Diff(want, occurrenceDates(result)); diff != "" {
			t.Fatalf("unexpected occurrences (-want +got):\n%s", diff)
		}
	})

	t.Run("last day of month follows leap years", func(t *testing.T) {
		t.Parallel()

		result, err := Project([]Template{rent}, window(t, "2024-01-01", "2024-04-30"), nil)
		if err != nil {
			t.Fatalf("Project returned error: %v", err)
		}

		want := []string{"2024-02-29", "2024-03-31", "2024-04-30"}
		if diff := cmp.Diff(want, occurrenceDates(result)); diff != "" {
			t.Fatalf("unexpected occurrences (-want +got):\n%s", diff)
		}
	})

	t.Run("tombstone suppresses its occurrence", func(t *testing.T) {
		t.Parallel()

		tombstones := []Marker{{Title: "Rent", Date: mustDate(t, "2024-03-31")}}
		result, err := Project([]Template{rent}, window(t, "2024-01-01", "2024-04-30"), NewSuppressions(nil, tombstones))
		if err != nil {
			t.Fatalf("Project returned error: %v", err)
		}

		want := []string{"2024-02-29", "2024-04-30"}
		if diff := cmp.Diff(want, occurrenceDates(result)); diff != "" {
			t.Fatalf("unexpected occurrences (-want +got):\n%s", diff)
		}
	})

	t.Run("rejects inverted windows", func(t *testing.T) {
		t.Parallel()

		_, err := Project([]Template{teamSync}, window(t, "2024-02-01", "2024-01-01"), nil)
		if !errors.Is(err, ErrInvalidDateRange) {
			t.Fatalf("expected ErrInvalidDateRange, got %v", err)
		}
	})

	t.Run("never projects before the anchor", func(t *testing.T) {
		t.Parallel()

		mid := Template{ID: "t-mid", Title: "Invoice", Anchor: mustDate(t, "2024-06-15"), Rule: Monthly(15)}
		result, err := Project([]Template{mid}, window(t, "2024-01-01", "2024-12-31"), nil)
		if err != nil {
			t.Fatalf("Project returned error: %v", err)
		}

		want := []string{"2024-07-15", "2024-08-15", "2024-09-15", "2024-10-15", "2024-11-15", "2024-12-15"}
		if diff := cmp.Diff(want, occurrenceDates(result)); diff != "" {
			t.Fatalf("unexpected occurrences (-want +got):\n%s", diff)
		}
	})

	t.Run("short months produce no monthly occurrence", func(t *testing.T) {
		t.Parallel()

		tmpl := Template{ID: "t-31", Title: "Close books", Anchor: mustDate(t, "2024-01-31"), Rule: Monthly(31)}
		result, err := Project([]Template{tmpl}, window(t, "2024-01-01", "2024-06-30"), nil)
		if err != nil {
			t.Fatalf("Project returned error: %v", err)
		}

		want := []string{"2024-03-31", "2024-05-31"}
		if diff := cmp.Diff(want, occurrenceDates(result)); diff != "" {
			t.Fatalf("unexpected occurrences (-want +got):\n%s", diff)
		}
	})

	t.Run("links occurrences back to their template", func(t *testing.T) {
		t.Parallel()

		result, err := Project([]Template{teamSync}, window(t, "2024-01-08", "2024-01-08"), nil)
		if err != nil {
			t.Fatalf("Project returned error: %v", err)
		}

		want := []Occurrence{{ID: "t-sync_2024-01-08", TemplateID: "t-sync", Date: mustDate(t, "2024-01-08")}}
		if diff := cmp.Diff(want, result.Occurrences); diff != "" {
			t.Fatalf("unexpected occurrences (-want +got):\n%s", diff)
		}
	})

	t.Run("is stable across repeated calls", func(t *testing.T) {
		t.Parallel()

		templates := []Template{rent, teamSync}
		w := window(t, "2024-01-01", "2024-03-31")

		first, err := Project(templates, w, nil)
		if err != nil {
			t.Fatalf("Project returned error: %v", err)
		}
		second, err := Project(templates, w, nil)
		if err != nil {
			t.Fatalf("Project returned error: %v", err)
		}

		if diff := cmp.Diff(first, second); diff != "" {
			t.Fatalf("projection changed between calls (-first +second):\n%s", diff)
		}
		for i := 1; i < len(first.Occurrences); i++ {
			if first.Occurrences[i].Date.Before(first.Occurrences[i-1].Date) {
				t.Fatalf("occurrences not ordered by date: %v", occurrenceDates(first))
			}
		}
	})

	t.Run("skips templates with invalid rules", func(t *testing.T) {
		t.Parallel()

		broken := []Template{
			{ID: "bad-weekday", Title: "A", Anchor: mustDate(t, "2024-01-01"), Rule: Weekly(8)},
			{ID: "bad-day", Title: "B", Anchor: mustDate(t, "2024-01-01"), Rule: Monthly(32)},
			teamSync,
		}

		result, err := Project(broken, window(t, "2024-01-01", "2024-01-31"), nil)
		if err != nil {
			t.Fatalf("Project returned error: %v", err)
		}

		if diff := cmp.Diff([]string{"bad-weekday", "bad-day"}, result.Skipped); diff != "" {
			t.Fatalf("unexpected skipped ids (-want +got):\n%s", diff)
		}
		if len(result.Occurrences) != 4 {
			t.Fatalf("expected valid template to keep projecting, got %v", occurrenceDates(result))
		}
	})

	t.Run("ignores non-repeating records and empty input", func(t *testing.T) {
		t.Parallel()

		plain := Template{ID: "plain", Title: "Call client", Anchor: mustDate(t, "2024-01-03")}
		result, err := Project([]Template{plain}, window(t, "2024-01-01", "2024-01-31"), nil)
		if err != nil {
			t.Fatalf("Project returned error: %v", err)
		}
		if len(result.Occurrences) != 0 || len(result.Skipped) != 0 {
			t.Fatalf("expected empty result, got %+v", result)
		}

		empty, err := Project(nil, window(t, "2024-01-01", "2024-01-01"), nil)
		if err != nil {
			t.Fatalf("Project returned error: %v", err)
		}
		if len(empty.Occurrences) != 0 {
			t.Fatalf("expected no occurrences, got %+v", empty)
		}
	})
}

func TestProject_SeriesMatching(t *testing.T) {
	t.Parallel()

	morning := Template{ID: "a", SeriesID: "series-a", Title: "Standup", Anchor: civil.Date{Year: 2024, Month: 1, Day: 1}, Rule: Weekly(3)}
	evening := Template{ID: "b", SeriesID: "series-b", Title: "Standup", Anchor: civil.Date{Year: 2024, Month: 1, Day: 1}, Rule: Weekly(3)}
	w := Window{Start: civil.Date{Year: 2024, Month: 1, Day: 1}, End: civil.Date{Year: 2024, Month: 1, Day: 14}}

	t.Run("series markers only suppress their own series", func(t *testing.T) {
		t.Parallel()

		tombstones := []Marker{{SeriesID: "series-a", Title: "Standup", Date: civil.Date{Year: 2024, Month: 1, Day: 3}}}
		result, err := Project([]Template{morning, evening}, w, NewSuppressions(nil, tombstones))
		if err != nil {
			t.Fatalf("Project returned error: %v", err)
		}

		want := []string{"b_2024-01-03", "a_2024-01-10", "b_2024-01-10"}
		got := make([]string, 0, len(result.Occurrences))
		for _, occ := range result.Occurrences {
			got = append(got, occ.ID)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("unexpected occurrences (-want +got):\n%s", diff)
		}
		if len(result.AmbiguousTitles) != 0 {
			t.Fatalf("series match must not be reported as ambiguous: %v", result.AmbiguousTitles)
		}
	})

	t.Run("title fallback across shared titles is flagged", func(t *testing.T) {
		t.Parallel()

		tombstones := []Marker{{Title: "Standup", Date: civil.Date{Year: 2024, Month: 1, Day: 10}}}
		result, err := Project([]Template{morning, evening}, w, NewSuppressions(nil, tombstones))
		if err != nil {
			t.Fatalf("Project returned error: %v", err)
		}

		if len(result.Occurrences) != 2 {
			t.Fatalf("expected both Jan 10 occurrences suppressed, got %+v", result.Occurrences)
		}
		if diff := cmp.Diff([]string{"Standup"}, result.AmbiguousTitles); diff != "" {
			t.Fatalf("unexpected ambiguous titles (-want +got):\n%s", diff)
		}
	})
}

func TestOccurrenceID(t *testing.T) {
	t.Parallel()

	d := civil.Date{Year: 2024, Month: 3, Day: 9}
	id := OccurrenceID("5f0c_x", d)
	if id != "5f0c_x_2024-03-09" {
		t.Fatalf("unexpected id %q", id)
	}

	templateID, parsed, ok := ParseOccurrenceID(id)
	if !ok || templateID != "5f0c_x" || parsed != d {
		t.Fatalf("ParseOccurrenceID(%q) = %q, %v, %v", id, templateID, parsed, ok)
	}

	for _, invalid := range []string{"", "plain-id", "_2024-03-09", "abc_", "abc_2024-13-01"} {
		if _, _, ok := ParseOccurrenceID(invalid); ok {
			t.Fatalf("expected %q to be rejected", invalid)
		}
	}
}
