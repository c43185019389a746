package syncx_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/mind-engage/mindengage-quiz/internal/db"
	syncx "github.com/mind-engage/mindengage-quiz/internal/sync"
)

func TestSinceClampsLimit(t *testing.T) {
	ctx := context.Background()
	dbh, err := db.Open(ctx, db.DriverSQLite, "file:eventlog_test?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer dbh.Close()

	repo := syncx.NewEventRepo(dbh)
	total := syncx.MaxEventPage + 20
	for i := 0; i < total; i++ {
		e := syncx.Event{ID: fmt.Sprintf("ev-%d", i), SiteID: "local", Type: syncx.TypeAttemptSubmitted,
			Key: fmt.Sprint(i), DataJSON: "{}"}
		if err := repo.Append(ctx, e); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	tests := []struct {
		limit int
		want  int
	}{
		{0, 100},
		{-5, 100},
		{7, 7},
		{1 << 30, syncx.MaxEventPage},
	}
	for _, tt := range tests {
		evs, err := repo.Since(ctx, 0, tt.limit)
		if err != nil {
			t.Fatalf("Since(limit=%d): %v", tt.limit, err)
		}
		if len(evs) != tt.want {
			t.Errorf("Since(limit=%d) = %d events, want %d", tt.limit, len(evs), tt.want)
		}
	}

	rest, err := repo.Since(ctx, int64(syncx.MaxEventPage), 1<<30)
	if err != nil {
		t.Fatal(err)
	}
	if len(rest) != 20 || rest[0].Seq != int64(syncx.MaxEventPage)+1 {
		t.Fatalf("second page: %d events", len(rest))
	}
}
