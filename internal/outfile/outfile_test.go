package outfile

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCreateWriteClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out")

	m, err := Create(path, 16, 0o644)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	buf := m.Bytes()
	if len(buf) != 16 {
		t.Fatalf("Bytes() len = %d, want 16", len(buf))
	}
	copy(buf, []byte("hello, mmap!\x00\x00\x00\x00"))

	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got[:12]) != "hello, mmap!" {
		t.Errorf("file contents = %q, want the bytes written through the mapping", got[:12])
	}
}

func TestCreateZeroSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty")

	m, err := Create(path, 0, 0o644)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(m.Bytes()) != 0 {
		t.Errorf("Bytes() len = %d, want 0 for a zero-size file", len(m.Bytes()))
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
