package location_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dropmate/trackd/internal/domain"
	"github.com/dropmate/trackd/internal/location"
	"github.com/dropmate/trackd/internal/storage/memory"
	"github.com/dropmate/trackd/pkg/log"
)

func newService(t *testing.T) (*location.Service, *memory.DB) {
	t.Helper()
	db := memory.NewDB()
	return location.NewService(db.Locations(), log.NewNop()), db
}

func TestRecordAndLatest(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	acc := 5.5
	sample, err := svc.Record(ctx, 7, 40.7128, -74.0060, &acc)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if sample.ID == 0 {
		t.Fatal("stored sample has no id")
	}
	if sample.OccurredAt.IsZero() {
		t.Fatal("stored sample has no timestamp")
	}

	latest, err := svc.Latest(ctx, 7)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.ID != sample.ID {
		t.Fatalf("latest id = %d, want %d", latest.ID, sample.ID)
	}
	if latest.Accuracy == nil || *latest.Accuracy != acc {
		t.Fatalf("latest accuracy = %v, want %v", latest.Accuracy, acc)
	}
}

func TestRecordRejectsOutOfRange(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	cases := []struct {
		name     string
		lat, lng float64
	}{
		{"lat too low", -90.1, 0},
		{"lat too high", 90.1, 0},
		{"lng too low", 0, -180.1},
		{"lng too high", 0, 180.1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Record(ctx, 1, tc.lat, tc.lng, nil)
			if !domain.IsValidation(err) {
				t.Fatalf("err = %v, want validation error", err)
			}
		})
	}

	// Nothing may be persisted by a rejected write.
	if _, err := svc.Latest(ctx, 1); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("latest after rejected writes: %v, want ErrNotFound", err)
	}
}

func TestRecordAcceptsBoundaryCoords(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	for _, c := range [][2]float64{{-90, -180}, {90, 180}, {0, 0}} {
		if _, err := svc.Record(ctx, 1, c[0], c[1], nil); err != nil {
			t.Fatalf("record(%v, %v): %v", c[0], c[1], err)
		}
	}
}

func TestLatestUnknownDriver(t *testing.T) {
	svc, _ := newService(t)
	if _, err := svc.Latest(context.Background(), 99); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestHistoryOrderAndLimit(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := svc.Record(ctx, 7, float64(i), float64(i), nil); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
		time.Sleep(time.Millisecond)
	}

	hist, err := svc.History(ctx, 7, location.HistoryOptions{Limit: 3})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 3 {
		t.Fatalf("history len = %d, want 3", len(hist))
	}
	for i := 1; i < len(hist); i++ {
		if hist[i].OccurredAt.After(hist[i-1].OccurredAt) {
			t.Fatalf("history not newest first at %d", i)
		}
	}
	// Newest first means the last write leads.
	if hist[0].Latitude != 4 {
		t.Fatalf("history[0].Latitude = %v, want 4", hist[0].Latitude)
	}
}

func TestHistorySinceFilter(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	if _, err := svc.Record(ctx, 7, 1, 1, nil); err != nil {
		t.Fatalf("record: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	since := time.Now().UTC()
	time.Sleep(2 * time.Millisecond)
	if _, err := svc.Record(ctx, 7, 2, 2, nil); err != nil {
		t.Fatalf("record: %v", err)
	}

	hist, err := svc.History(ctx, 7, location.HistoryOptions{Since: &since})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 1 || hist[0].Latitude != 2 {
		t.Fatalf("history = %+v, want only the post-since sample", hist)
	}
}

func TestPurgeBefore(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	if _, err := svc.Record(ctx, 7, 1, 1, nil); err != nil {
		t.Fatalf("record: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	cutoff := time.Now().UTC()
	time.Sleep(2 * time.Millisecond)
	if _, err := svc.Record(ctx, 7, 2, 2, nil); err != nil {
		t.Fatalf("record: %v", err)
	}

	n, err := svc.PurgeBefore(ctx, cutoff)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if n != 1 {
		t.Fatalf("purged %d, want 1", n)
	}
	latest, err := svc.Latest(ctx, 7)
	if err != nil {
		t.Fatalf("latest after purge: %v", err)
	}
	if latest.Latitude != 2 {
		t.Fatalf("latest after purge = %+v, want the newer sample", latest)
	}
}
