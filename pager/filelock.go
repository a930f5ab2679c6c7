package pager

import (
	"fmt"
	"runtime"
	"syscall"
)

// AcquireExclusive takes a non-blocking exclusive advisory lock on the
// manager's data file, held for the lifetime of the process. A second
// process pointed at the same file fails fast here instead of silently
// corrupting the log: multi-process sharing is a Non-goal honored by
// refusal, not merely left undocumented.
//
// This is an advisory lock: only processes that also call AcquireExclusive
// are kept out. It is a no-op against the in-memory backend, which has
// nothing to lock.
func (m *Manager) AcquireExclusive() error {
	fs, ok := m.disk.store.(*fileStorage)
	if !ok {
		return nil
	}
	if !(runtime.GOOS == "linux" || runtime.GOOS == "darwin") {
		return fmt.Errorf("pager: exclusive file locking is not supported on %s", runtime.GOOS)
	}
	if err := syscall.Flock(int(fs.fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		return fmt.Errorf("pager: %s is already locked by another process: %w", DBFileName, err)
	}
	return nil
}
