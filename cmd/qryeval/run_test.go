package main

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/searcher/batch"
)

func TestWriteAtomicallyPublishesReadableFile(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permission bits")
	}
	path := filepath.Join(t.TempDir(), "run.trec")
	_, err := writeAtomically(path, func(f *os.File) (batch.Summary, error) {
		_, err := f.WriteString("10 Q0 d1 1 1 run-1\n")
		return batch.Summary{Queries: 1}, err
	})
	if err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := info.Mode().Perm(); got != outputMode {
		t.Errorf("mode = %o, want %o", got, outputMode)
	}
}

func TestWriteAtomicallyLeavesNothingOnFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.trec")
	boom := errors.New("boom")
	_, err := writeAtomically(path, func(f *os.File) (batch.Summary, error) {
		f.WriteString("partial")
		return batch.Summary{}, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("directory has %d entries, want none", len(entries))
	}
}
