package storage

import (
	"os"
	"path/filepath"
	"testing"
)

// writeStoreLayout lays out a database with WAL and SHM siblings and a slide
// index directory holding one nested segment file.
func writeStoreLayout(t *testing.T) (db, index string) {
	t.Helper()
	dir := t.TempDir()
	db = filepath.Join(dir, "db", "fuda.db")
	index = filepath.Join(dir, "indices", "slides")

	files := map[string]string{
		db:                                       "1234",
		db + "-wal":                              "56",
		db + "-shm":                              "7",
		filepath.Join(index, "index_meta.json"):  "abc",
		filepath.Join(index, "store", "seg.zap"): "defgh",
	}
	for path, body := range files {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return db, index
}

func TestDiskUsageBytes_SlideStore(t *testing.T) {
	db, index := writeStoreLayout(t)

	tests := []struct {
		name  string
		paths []string
		want  int64
	}{
		{"database only", []string{db}, 4},
		{"database with wal and shm", DatabaseFiles(db), 7},
		{"slide index directory", []string{index}, 8},
		{"whole store", append(DatabaseFiles(db), index), 15},
		{"missing index skipped", append(DatabaseFiles(db), filepath.Join(filepath.Dir(index), "gone")), 7},
		{"unset index path skipped", []string{db, ""}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DiskUsageBytes(tt.paths...)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("DiskUsageBytes = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDiskUsageBytes_FreshDatabaseWithoutWAL(t *testing.T) {
	db := filepath.Join(t.TempDir(), "fuda.db")
	if err := os.WriteFile(db, []byte("12345"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := DiskUsageBytes(DatabaseFiles(db)...)
	if err != nil {
		t.Fatal(err)
	}
	if got != 5 {
		t.Errorf("got %d bytes, want 5", got)
	}
}
