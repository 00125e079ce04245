package engine

import "testing"

func TestSpillStoreSaveLoadDeleteRoundTrip(t *testing.T) {
	s := newSpillStore(t.TempDir())

	if _, ok, err := s.Load("2026-07-31#09-10"); err != nil || ok {
		t.Fatalf("expected no spill present initially, got ok=%v err=%v", ok, err)
	}

	data := []byte(`[{"method":"GET"}]`)
	if err := s.Save("2026-07-31#09-10", data); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, ok, err := s.Load("2026-07-31#09-10")
	if err != nil || !ok {
		t.Fatalf("expected staged spill, got ok=%v err=%v", ok, err)
	}
	if string(loaded) != string(data) {
		t.Fatalf("loaded = %q, want %q", loaded, data)
	}

	if err := s.Delete("2026-07-31#09-10"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, err := s.Load("2026-07-31#09-10"); err != nil || ok {
		t.Fatalf("expected spill cleared after delete, got ok=%v err=%v", ok, err)
	}
}

func TestSpillStoreDeleteOfMissingKeyIsNoop(t *testing.T) {
	s := newSpillStore(t.TempDir())
	if err := s.Delete("never-staged"); err != nil {
		t.Fatalf("expected no error deleting a never-staged key, got %v", err)
	}
}

func TestSpillStoreSaveOverwritesPriorSpill(t *testing.T) {
	s := newSpillStore(t.TempDir())
	if err := s.Save("k", []byte("first")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save("k", []byte("second")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, ok, err := s.Load("k")
	if err != nil || !ok {
		t.Fatalf("Load: ok=%v err=%v", ok, err)
	}
	if string(loaded) != "second" {
		t.Fatalf("loaded = %q, want %q", loaded, "second")
	}
}
