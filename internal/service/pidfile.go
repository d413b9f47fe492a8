package service

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofrs/flock"
)

// ErrAlreadyRunning is returned when another process holds the PID file lock
var ErrAlreadyRunning = errors.New("collector service already running")

// PIDFile is a locked file holding the service's process ID. The lock, not
// the file's existence, decides whether a service is running, so a file left
// behind by a crash does not block the next start.
type PIDFile struct {
	path string
	lock *flock.Flock
}

// Acquire locks path and writes the current process ID into it
func Acquire(path string) (*PIDFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create pid directory: %w", err)
	}

	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}
	if !locked {
		if pid, err := ReadPID(path); err == nil {
			return nil, fmt.Errorf("%w (pid %d)", ErrAlreadyRunning, pid)
		}
		return nil, ErrAlreadyRunning
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("failed to write pid file: %w", err)
	}

	return &PIDFile{path: path, lock: lock}, nil
}

// Path returns the PID file location
func (p *PIDFile) Path() string {
	return p.path
}

// Release removes the file and drops the lock
func (p *PIDFile) Release() error {
	rmErr := os.Remove(p.path)
	if errors.Is(rmErr, os.ErrNotExist) {
		rmErr = nil
	}
	return errors.Join(rmErr, p.lock.Unlock())
}

// ReadPID returns the process ID stored in path
func ReadPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid file %s", path)
	}
	return pid, nil
}

// Running reports the PID of the service holding path's lock. It returns
// false when no process holds it.
func Running(path string) (int, bool, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return 0, false, nil
	}

	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		return 0, false, fmt.Errorf("failed to probe %s: %w", path, err)
	}
	if locked {
		_ = lock.Unlock()
		return 0, false, nil
	}

	pid, err := ReadPID(path)
	if err != nil {
		return 0, true, err
	}
	return pid, true, nil
}
