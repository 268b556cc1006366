package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/verte-zerg/stenoarena/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "nested", "stenoarena.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func TestGetPut(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	if _, ok, err := st.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
	}
	if err := st.Put(ctx, "k", []byte("one")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := st.Put(ctx, "k", []byte("two")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	value, ok, err := st.Get(ctx, "k")
	if err != nil || !ok || string(value) != "two" {
		t.Fatalf("unexpected value %q ok=%v err=%v", value, ok, err)
	}
}

func TestCollectionRoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	tests := NewCollection[model.TestDefinition](st, KeyTests)

	loaded, err := tests.Load(ctx)
	if err != nil {
		t.Fatalf("load empty: %v", err)
	}
	if len(loaded) != 0 {
		t.Fatalf("expected empty collection, got %d", len(loaded))
	}

	want := []model.TestDefinition{
		{ID: "a", Name: "First", Date: "2026-10-18", StartTime: "09:00", EndTime: "09:30", Duration: 30, Paragraph: "one two"},
		{ID: "b", Name: "Second", Date: "2026-10-19", StartTime: "10:00", EndTime: "10:10", Duration: 10, Paragraph: "three"},
	}
	if err := tests.Save(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err = tests.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 2 || loaded[1].Paragraph != "three" || loaded[0].EndTime != "09:30" {
		t.Fatalf("unexpected collection: %+v", loaded)
	}

	results := NewCollection[model.StoredResult](st, KeyResults)
	if got, _ := results.Load(ctx); len(got) != 0 {
		t.Fatalf("collections must not share keys")
	}
}

func TestCollectionRejectsCorruptBlob(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	if err := st.Put(ctx, KeyResults, []byte("{not json")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := NewCollection[model.StoredResult](st, KeyResults).Load(ctx); err == nil {
		t.Fatalf("expected decode error")
	}
}
