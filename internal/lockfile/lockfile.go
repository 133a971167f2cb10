// Package lockfile guards a Simsar state directory against a second process.
//
// The lock is an flock on a file inside the directory, so the kernel drops it when the
// owning process exits, cleanly or not. The file's contents only describe the owner
// for error messages.
package lockfile

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// LockFileName is the name of the lock file created in the state directory.
const LockFileName = "simsar.lock"

// Owner describes the process holding a lock.
type Owner struct {
	PID     int
	Started time.Time
}

// Lock is a held state-directory lock.
type Lock struct {
	file *os.File
	path string
}

// Path returns the lock file path.
func (l *Lock) Path() string { return l.path }

// Acquire takes an exclusive lock on stateDir, creating it if needed. When another
// process holds the lock it returns a *LockError describing that process.
func Acquire(stateDir string) (*Lock, error) {
	path := filepath.Join(stateDir, LockFileName)
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory %s: %w", stateDir, err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file %s: %w", path, err)
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		owner, _ := ReadOwner(path)
		slog.Error("Acquire: state directory is locked", "lock_path", path, "owner_pid", owner.PID)
		return nil, &LockError{LockPath: path, Owner: owner, Cause: err}
	}

	// Truncate only once the lock is ours, so a loser never clobbers the owner's info.
	if err := writeOwner(f, Owner{PID: os.Getpid(), Started: time.Now().UTC()}); err != nil {
		syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		f.Close()
		return nil, fmt.Errorf("failed to write lock file %s: %w", path, err)
	}

	slog.Info("Acquire: state directory locked", "lock_path", path, "pid", os.Getpid())
	return &Lock{file: f, path: path}, nil
}

// Release unlocks and removes the lock file. It is safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	var firstErr error
	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN); err != nil {
		firstErr = fmt.Errorf("failed to unlock %s: %w", l.path, err)
	}
	if err := l.file.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("failed to close %s: %w", l.path, err)
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		slog.Warn("Lock.Release: failed to remove lock file", "error", err, "lock_path", l.path)
	}
	l.file = nil
	slog.Debug("Lock.Release: state directory unlocked", "lock_path", l.path)
	return firstErr
}

func writeOwner(f *os.File, o Owner) error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.Seek(0, 0); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(f, "pid=%d\nstarted=%s\n", o.PID, o.Started.Format(time.RFC3339)); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		slog.Warn("writeOwner: sync failed", "error", err)
	}
	return nil
}

// ReadOwner parses the owner recorded in a lock file. Unknown keys are ignored.
func ReadOwner(path string) (Owner, error) {
	f, err := os.Open(path)
	if err != nil {
		return Owner{}, err
	}
	defer f.Close()

	var o Owner
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		key, val, ok := strings.Cut(strings.TrimSpace(sc.Text()), "=")
		if !ok {
			continue
		}
		switch key {
		case "pid":
			if pid, err := strconv.Atoi(val); err == nil {
				o.PID = pid
			}
		case "started":
			if ts, err := time.Parse(time.RFC3339, val); err == nil {
				o.Started = ts
			}
		}
	}
	return o, sc.Err()
}

// Alive reports whether the owner's process still exists.
func (o Owner) Alive() bool {
	if o.PID <= 0 {
		return false
	}
	p, err := os.FindProcess(o.PID)
	if err != nil {
		return false
	}
	return p.Signal(syscall.Signal(0)) == nil
}

// LockError reports a state directory held by another process.
type LockError struct {
	LockPath string
	Owner    Owner
	Cause    error
}

func (e *LockError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "another Simsar process is using this state directory (lock file %s)", e.LockPath)
	switch {
	case e.Owner.PID > 0 && e.Owner.Alive():
		fmt.Fprintf(&b, "; held by PID %d", e.Owner.PID)
	case e.Owner.PID > 0:
		fmt.Fprintf(&b, "; PID %d is gone, remove the lock file if no other process uses the directory", e.Owner.PID)
	}
	if !e.Owner.Started.IsZero() {
		fmt.Fprintf(&b, " since %s", e.Owner.Started.Format(time.RFC3339))
	}
	return b.String()
}

func (e *LockError) Unwrap() error { return e.Cause }
