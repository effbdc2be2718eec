package sync

import (
	"testing"
	"time"

	"github.com/finadex/accsync/pkg/db"
	"github.com/finadex/accsync/pkg/provider"
)

func serviceFixture(client *fakeProvider) (*Service, *fakeCursorStorage) {
	cursors := newFakeCursorStorage()
	docs := newFakeDocumentStorage()
	contacts := &fakeContactStorage{}

	journal := NewJournalEngine(client, newFakeJournalStorage(), cursors, docs)
	documents := NewDocumentEngine(client, docs, contacts, cursors)
	normalizer := NewNormalizer(docs, &fakeResolver{base: "CZK"})

	return NewService(journal, documents, normalizer), cursors
}

func TestSyncAllAdvancesDocumentCursor(t *testing.T) {
	client := &fakeProvider{
		documents: map[string][]provider.Document{
			provider.WireTypeSales: {wireDocument("d1", "Alfa s.r.o.", "12345678", 100, "CZK")},
		},
	}
	service, cursors := serviceFixture(client)

	start := time.Now()
	stats, err := service.SyncAll(time.Time{})
	if err != nil {
		t.Fatalf("SyncAll() error = %v", err)
	}
	if stats.State != StateCompleted {
		t.Errorf("state = %s, expected %s", stats.State, StateCompleted)
	}

	last, ok, _ := cursors.Get(db.CursorDocuments)
	if !ok {
		t.Fatal("documents cursor not set after completed run")
	}
	if last.Before(start) || last.After(time.Now()) {
		t.Errorf("documents cursor = %v, expected the run start", last)
	}
}

func TestSyncAllKeepsDocumentCursorOnFailure(t *testing.T) {
	client := &fakeProvider{err: errTestProvider}
	service, cursors := serviceFixture(client)

	if _, err := service.SyncAll(time.Time{}); err == nil {
		t.Fatal("SyncAll() expected error, got nil")
	}

	if _, ok, _ := cursors.Get(db.CursorDocuments); ok {
		t.Error("documents cursor should stay unset after a failed run")
	}
}
