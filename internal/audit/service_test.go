package audit

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func TestRecordAndRecent(t *testing.T) {
	svc, err := NewService(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	defer svc.Close()

	events := []Event{
		{TraceID: "t1", Channel: "telegram", SenderID: "100", EventType: EventPress, Label: "Products"},
		{TraceID: "t1", Channel: "telegram", SenderID: "100", EventType: EventNavigate, Menu: "products"},
		{TraceID: "t2", Channel: "telegram", SenderID: "200", EventType: EventFallback, Label: "garbage"},
	}
	for _, ev := range events {
		if err := svc.Record(ev); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	got, err := svc.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Recent returned %d events, want 3", len(got))
	}
	// Newest first.
	if got[0].EventType != EventFallback {
		t.Errorf("first event = %q, want fallback", got[0].EventType)
	}

	mine, err := svc.BySender("100", 10)
	if err != nil {
		t.Fatalf("BySender: %v", err)
	}
	if len(mine) != 2 {
		t.Errorf("BySender(100) returned %d events, want 2", len(mine))
	}
}

func TestPruneBefore(t *testing.T) {
	svc, err := NewService(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	defer svc.Close()

	old := Event{Channel: "telegram", SenderID: "1", EventType: EventPress,
		CreatedAt: time.Now().Add(-48 * time.Hour)}
	fresh := Event{Channel: "telegram", SenderID: "1", EventType: EventPress}
	if err := svc.Record(old); err != nil {
		t.Fatal(err)
	}
	if err := svc.Record(fresh); err != nil {
		t.Fatal(err)
	}

	n, err := svc.PruneBefore(time.Now().Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("PruneBefore: %v", err)
	}
	if n != 1 {
		t.Errorf("pruned %d, want 1", n)
	}

	left, err := svc.Recent(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 1 {
		t.Errorf("%d events left, want 1", len(left))
	}
}

func TestInjectedDatabase(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	defer db.Close()

	svc, err := NewServiceWithDB(db)
	if err != nil {
		t.Fatalf("NewServiceWithDB: %v", err)
	}

	if err := svc.Record(Event{Channel: "slack", SenderID: "U1", EventType: EventDenied}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	got, err := svc.Recent(1)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 1 || got[0].EventType != EventDenied {
		t.Errorf("Recent = %+v", got)
	}
}
