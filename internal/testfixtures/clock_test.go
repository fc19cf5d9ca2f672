package testfixtures

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
)

func TestClockDefaultsToReferenceTime(t *testing.T) {
	clock := NewClock(time.Time{})
	if !clock.Now().Equal(ReferenceTime()) {
		t.Fatalf("expected ReferenceTime, got %v", clock.Now())
	}
	if got := clock.Today(nil); got != ReferenceDate() {
		t.Fatalf("expected ReferenceDate, got %v", got)
	}
}

func TestClockAdvanceAndNowFunc(t *testing.T) {
	start := time.Date(2024, time.March, 14, 9, 26, 0, 0, time.UTC)
	clock := NewClock(start)
	nowFn := clock.NowFunc()

	updated := clock.Advance(90 * time.Minute)
	if !updated.Equal(start.Add(90 * time.Minute)) {
		t.Fatalf("advance returned %v", updated)
	}
	if got := nowFn(); !got.Equal(updated) {
		t.Fatalf("expected NowFunc to follow the clock, got %v", got)
	}
}

func TestClockTodayRespectsLocation(t *testing.T) {
	clock := NewClock(time.Date(2024, time.January, 31, 16, 0, 0, 0, time.UTC))
	seoul := time.FixedZone("KST", 9*60*60)

	if got := clock.Today(seoul); got != (civil.Date{Year: 2024, Month: time.February, Day: 1}) {
		t.Fatalf("expected next day in Seoul, got %v", got)
	}

	clock.SetDate(civil.Date{Year: 2024, Month: time.March, Day: 5})
	if got := clock.Today(nil); got.String() != "2024-03-05" {
		t.Fatalf("expected 2024-03-05 after SetDate, got %v", got)
	}
}
