package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// LockFileName is created in the work directory while a session is open.
const LockFileName = "vidlore.lock"

// workLock guards the work directory against a second concurrent session.
type workLock struct {
	path string
	lock *flock.Flock
}

func newWorkLock(workDir string) *workLock {
	path := filepath.Join(workDir, LockFileName)
	return &workLock{path: path, lock: flock.New(path)}
}

func (l *workLock) acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("ensure work directory: %w", err)
	}
	ok, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w (%s)", ErrSessionLocked, l.path)
	}
	return nil
}

func (l *workLock) release() error {
	if l == nil || !l.lock.Locked() {
		return nil
	}
	return l.lock.Unlock()
}
