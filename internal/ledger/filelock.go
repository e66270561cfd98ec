package ledger

import (
	"os"
	"syscall"
	"time"
)

// fileLock provides advisory file locking via flock(2). Concurrent
// invocations are not a supported usage pattern; the lock exists to
// fail fast if one happens anyway.
type fileLock struct {
	path string
	file *os.File
}

// newFileLock creates a lock at path + ".lock". The lock is not
// acquired until Lock() is called.
func newFileLock(path string) *fileLock {
	return &fileLock{path: path + ".lock"}
}

// Lock acquires an exclusive lock within the timeout, returning
// ErrLockTimeout otherwise.
func (l *fileLock) Lock(timeout time.Duration) error {
	var err error
	l.file, err = os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return err
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		err = syscall.Flock(int(l.file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
		if err == nil {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}

	l.file.Close()
	l.file = nil
	return ErrLockTimeout
}

// Unlock releases the lock.
func (l *fileLock) Unlock() error {
	if l.file == nil {
		return nil
	}
	syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	l.file.Close()
	os.Remove(l.path)
	l.file = nil
	return nil
}
