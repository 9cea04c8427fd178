package store_test

import (
	"path/filepath"
	"testing"

	"github.com/MrKot86/ble-aura-mesh/internal/store"
)

func TestFileStoreMissingFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.gob")
	fs, err := store.NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := fs.Read(1); ok {
		t.Error("expected a miss on a fresh store")
	}
}

func TestFileStoreWriteThenReadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.gob")
	fs, err := store.NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{1, 2, 3, 4}
	if err := fs.Write(1, want); err != nil {
		t.Fatal(err)
	}
	got, ok, err := fs.Read(1)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || string(got) != string(want) {
		t.Errorf("Read(1) = %v (ok=%v), want %v", got, ok, want)
	}
}

func TestFileStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.gob")
	fs, err := store.NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := fs.Write(2, []byte{0xAA}); err != nil {
		t.Fatal(err)
	}

	reopened, err := store.NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	got, ok, err := reopened.Read(2)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || len(got) != 1 || got[0] != 0xAA {
		t.Errorf("Read(2) after reopen = %v (ok=%v), want [0xAA]", got, ok)
	}
}

func TestFileStoreWriteDoesNotClobberOtherIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.gob")
	fs, err := store.NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := fs.Write(1, []byte{1}); err != nil {
		t.Fatal(err)
	}
	if err := fs.Write(2, []byte{2}); err != nil {
		t.Fatal(err)
	}
	got1, ok1, _ := fs.Read(1)
	got2, ok2, _ := fs.Read(2)
	if !ok1 || got1[0] != 1 {
		t.Errorf("Read(1) = %v (ok=%v)", got1, ok1)
	}
	if !ok2 || got2[0] != 2 {
		t.Errorf("Read(2) = %v (ok=%v)", got2, ok2)
	}
}

func TestMemStoreReadWrite(t *testing.T) {
	m := store.NewMemStore()
	if _, ok, _ := m.Read(1); ok {
		t.Error("expected a miss on a fresh MemStore")
	}
	if err := m.Write(1, []byte{9, 9}); err != nil {
		t.Fatal(err)
	}
	got, ok, _ := m.Read(1)
	if !ok || len(got) != 2 {
		t.Errorf("Read(1) = %v (ok=%v), want [9 9]", got, ok)
	}
}
