package lockfile

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"
)

func TestAcquireWritesOwner(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")
	lock, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer lock.Release()

	if lock.Path() != filepath.Join(dir, LockFileName) {
		t.Errorf("path = %q", lock.Path())
	}
	owner, err := ReadOwner(lock.Path())
	if err != nil {
		t.Fatalf("ReadOwner: %v", err)
	}
	if owner.PID != os.Getpid() {
		t.Errorf("pid = %d, want %d", owner.PID, os.Getpid())
	}
	if time.Since(owner.Started) > time.Minute {
		t.Errorf("started = %v", owner.Started)
	}
	if !owner.Alive() {
		t.Error("own process should be alive")
	}
}

func TestAcquireConflict(t *testing.T) {
	dir := t.TempDir()
	first, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer first.Release()

	second, err := Acquire(dir)
	if err == nil {
		second.Release()
		t.Fatal("second Acquire should fail")
	}
	var lockErr *LockError
	if !errors.As(err, &lockErr) {
		t.Fatalf("error type = %T", err)
	}
	if lockErr.Owner.PID != os.Getpid() {
		t.Errorf("owner pid = %d", lockErr.Owner.PID)
	}
	if !errors.Is(err, syscall.EWOULDBLOCK) {
		t.Errorf("cause = %v, want EWOULDBLOCK", lockErr.Cause)
	}
	if msg := err.Error(); !strings.Contains(msg, dir) || !strings.Contains(msg, "held by PID") {
		t.Errorf("message = %q", msg)
	}

	// The loser must not wipe the owner's record.
	owner, err := ReadOwner(first.Path())
	if err != nil || owner.PID != os.Getpid() {
		t.Errorf("owner after conflict = %+v, %v", owner, err)
	}
}

func TestReleaseAllowsReacquire(t *testing.T) {
	dir := t.TempDir()
	lock, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Errorf("second Release: %v", err)
	}
	if _, err := os.Stat(lock.Path()); !os.IsNotExist(err) {
		t.Errorf("lock file still present: %v", err)
	}

	again, err := Acquire(dir)
	if err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	again.Release()
}

func TestReadOwner(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantPID int
		wantTS  bool
	}{
		{"full", "pid=42\nstarted=2024-05-01T10:00:00Z\n", 42, true},
		{"pid only", "pid=7\n", 7, false},
		{"garbage", "hello\npid=abc\n", 0, false},
		{"empty", "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), LockFileName)
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			o, err := ReadOwner(path)
			if err != nil {
				t.Fatalf("ReadOwner: %v", err)
			}
			if o.PID != tt.wantPID || o.Started.IsZero() == tt.wantTS {
				t.Errorf("owner = %+v", o)
			}
		})
	}
}

func TestLockErrorStaleOwner(t *testing.T) {
	e := &LockError{LockPath: "/tmp/x/simsar.lock", Owner: Owner{PID: 1 << 30}}
	if msg := e.Error(); !strings.Contains(msg, "is gone") {
		t.Errorf("message = %q", msg)
	}
	if (Owner{}).Alive() {
		t.Error("zero owner should not be alive")
	}
}
