// Package lock keeps a single popup or daemon instance per data directory.
package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	// StaleLockTimeout is the age after which an untouched lock is ignored.
	StaleLockTimeout = 5 * time.Minute
	// KeepAliveInterval is how often KeepAlive refreshes the lock.
	KeepAliveInterval = time.Minute
)

// ErrHeld is returned by Acquire when another live instance holds the lock.
var ErrHeld = errors.New("another instance is running")

// FileName returns the lock file name for an instance kind such as "serve".
func FileName(name string) string {
	return ".hooky-" + name + ".lock"
}

// Lock is a PID file created with O_EXCL.
type Lock struct {
	path     string
	acquired bool
}

// New creates a lock for instance name inside dir.
func New(dir, name string) *Lock {
	return &Lock{path: filepath.Join(dir, FileName(name))}
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// TryAcquire takes the lock. It returns false when a fresh lock exists.
func (l *Lock) TryAcquire() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return false, fmt.Errorf("failed to create lock directory: %w", err)
	}

	if info, err := os.Stat(l.path); err == nil {
		if time.Since(info.ModTime()) <= StaleLockTimeout {
			return false, nil
		}
		os.Remove(l.path)
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if errors.Is(err, os.ErrExist) {
		// lost the race to another process
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create lock file: %w", err)
	}
	_, werr := f.WriteString(strconv.Itoa(os.Getpid()))
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		os.Remove(l.path)
		return false, fmt.Errorf("failed to write lock file: %w", werr)
	}

	l.acquired = true
	return true, nil
}

// Acquire is TryAcquire that reports a held lock as ErrHeld, naming the holder.
func (l *Lock) Acquire() error {
	ok, err := l.TryAcquire()
	if err != nil {
		return err
	}
	if !ok {
		if pid, perr := l.GetPID(); perr == nil {
			return fmt.Errorf("%w (pid %d)", ErrHeld, pid)
		}
		return ErrHeld
	}
	return nil
}

// ForceAcquire replaces any existing lock.
func (l *Lock) ForceAcquire() error {
	os.Remove(l.path)
	ok, err := l.TryAcquire()
	if err != nil {
		return err
	}
	if !ok {
		return ErrHeld
	}
	return nil
}

// Release removes the lock file if this process holds it.
func (l *Lock) Release() error {
	if !l.acquired {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	l.acquired = false
	return nil
}

// Touch refreshes the lock timestamp.
func (l *Lock) Touch() error {
	if !l.acquired {
		return nil
	}
	now := time.Now()
	return os.Chtimes(l.path, now, now)
}

// KeepAlive touches the lock every interval until ctx is done.
func (l *Lock) KeepAlive(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = l.Touch()
		}
	}
}

// GetPID returns the PID stored in the lock file.
func (l *Lock) GetPID() (int, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID in lock file: %w", err)
	}
	return pid, nil
}
