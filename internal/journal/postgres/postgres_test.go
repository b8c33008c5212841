package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/alfredjeanlab/muster/internal/model"
)

// newMockDB creates a sqlmock database with automatic cleanup and expectation checking.
func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
		db.Close()
	})
	return db, mock
}

var entryColumns = []string{"id", "topic", "event_name", "actor", "payload", "created_at"}

func TestQueryRecordEntry(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()
	entry := &model.Entry{
		Topic: "muster.event.registered", EventName: "Raid1", Actor: "alice",
		Payload: json.RawMessage(`{"role":"Tank"}`),
	}
	mock.ExpectQuery("INSERT INTO entries").
		WithArgs("muster.event.registered", "Raid1", "alice", []byte(`{"role":"Tank"}`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(7, now))

	if err := queryRecordEntry(context.Background(), db, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.ID != 7 || !entry.CreatedAt.Equal(now) {
		t.Fatalf("got id=%d created_at=%v", entry.ID, entry.CreatedAt)
	}
}

func TestQueryRecordEntry_EmptyPayloadAndActor(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("INSERT INTO entries").
		WithArgs("muster.event.removed", "Raid1", nil, []byte("{}")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(1, time.Now()))

	if err := queryRecordEntry(context.Background(), db, &model.Entry{Topic: "muster.event.removed", EventName: "Raid1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestQueryGetEntries(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()
	rows := sqlmock.NewRows(entryColumns).
		AddRow(1, "muster.event.created", "Raid1", nil, []byte(`{}`), now).
		AddRow(2, "muster.event.registered", "Raid1", "alice", []byte(`{"role":"Tank"}`), now)
	mock.ExpectQuery("SELECT .+ FROM entries WHERE lower\\(event_name\\) = lower\\(\\$1\\)").
		WithArgs("raid1").WillReturnRows(rows)

	entries, err := queryGetEntries(context.Background(), db, "raid1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Actor != "" || entries[1].Actor != "alice" {
		t.Fatalf("got actors=%q %q", entries[0].Actor, entries[1].Actor)
	}
	if string(entries[1].Payload) != `{"role":"Tank"}` {
		t.Errorf("payload = %s", entries[1].Payload)
	}
}

func TestQueryGetEntries_Error(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT .+ FROM entries").WillReturnError(errors.New("connection reset"))

	if _, err := queryGetEntries(context.Background(), db, "Raid1"); err == nil {
		t.Fatal("expected error")
	}
}

func TestJournal_RecordAndEntries(t *testing.T) {
	db, mock := newMockDB(t)
	j := &Journal{db: db}
	now := time.Now().UTC()

	mock.ExpectQuery("INSERT INTO entries").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(3, now))
	mock.ExpectQuery("SELECT .+ FROM entries").
		WillReturnRows(sqlmock.NewRows(entryColumns).AddRow(3, "muster.event.created", "Raid1", nil, []byte(`{}`), now))

	e := &model.Entry{Topic: "muster.event.created", EventName: "Raid1"}
	if err := j.Record(context.Background(), e); err != nil {
		t.Fatalf("Record: %v", err)
	}
	got, err := j.Entries(context.Background(), "Raid1")
	if err != nil || len(got) != 1 || got[0].ID != 3 {
		t.Fatalf("Entries = %+v, %v", got, err)
	}
}
