package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestRotatingWriterNamesByDay(t *testing.T) {
	tmp := t.TempDir()
	base := filepath.Join(tmp, "regfold.log")
	w, err := NewRotatingWriter(base, 1024)
	if err != nil {
		t.Fatalf("NewRotatingWriter: %v", err)
	}
	defer w.Close()

	if _, err := w.Write([]byte("hello\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	day := time.Now().UTC().Format("2006-01-02")
	dated := filepath.Join(tmp, fmt.Sprintf("regfold-%s.log", day))
	data, err := os.ReadFile(dated)
	if err != nil {
		t.Fatalf("read dated file: %v", err)
	}
	if !strings.Contains(string(data), "hello") {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestRotatingWriterRollsOverOnSize(t *testing.T) {
	tmp := t.TempDir()
	base := filepath.Join(tmp, "regfold.log")
	w, err := NewRotatingWriter(base, 10)
	if err != nil {
		t.Fatalf("NewRotatingWriter: %v", err)
	}
	defer w.Close()

	if _, err := w.Write([]byte("12345678\n")); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if _, err := w.Write([]byte("overflow\n")); err != nil {
		t.Fatalf("second write: %v", err)
	}

	day := time.Now().UTC().Format("2006-01-02")
	rolled := filepath.Join(tmp, fmt.Sprintf("regfold-%s-2.log", day))
	if _, err := os.Stat(rolled); err != nil {
		t.Fatalf("expected rolled file: %v", err)
	}
}

func TestRotatingWriterDisabled(t *testing.T) {
	w, err := NewRotatingWriter("-", 10)
	if err != nil {
		t.Fatalf("NewRotatingWriter: %v", err)
	}
	if _, err := w.Write([]byte("dropped")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
