package runlock

import (
	"errors"
	"testing"
)

func TestAcquireIsExclusive(t *testing.T) {
	dir := t.TempDir()
	first, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	if _, err := Acquire(dir); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked for second acquire, got %v", err)
	}
	if held, err := Held(dir); err != nil || !held {
		t.Fatalf("expected lock to be reported held, got %v %v", held, err)
	}

	if err := first.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	second, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	defer second.Release()
}

func TestHeldWithoutLockFile(t *testing.T) {
	held, err := Held(t.TempDir())
	if err != nil || held {
		t.Fatalf("expected no lock, got %v %v", held, err)
	}
	var nilLock *Lock
	if err := nilLock.Release(); err != nil {
		t.Fatalf("nil release: %v", err)
	}
}
