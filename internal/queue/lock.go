package queue

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ginjaninja78/entrypilot/pkg/utils"
)

const lockOwnerFile = "owner.json"

// Lock guards a state file against a second controller. It is a directory
// next to the state file, created atomically by os.Mkdir.
type Lock struct {
	dir string
}

type lockOwner struct {
	PID       int    `json:"pid"`
	CreatedAt string `json:"created_at"`
	Hostname  string `json:"hostname,omitempty"`
	Command   string `json:"command,omitempty"`
}

// AcquireLock takes the lock for the state file at statePath.
func AcquireLock(statePath, command string) (Lock, error) {
	target := strings.TrimSpace(statePath)
	if target == "" {
		return Lock{}, fmt.Errorf("state path is required")
	}
	if err := utils.EnsureDir(filepath.Dir(target)); err != nil {
		return Lock{}, err
	}

	dir := target + ".lock"
	err := os.Mkdir(dir, 0o755)
	if os.IsExist(err) {
		owner, ok := readLockOwner(dir)
		if ok && ownerGone(owner) {
			// The previous holder died without releasing; take over once.
			_ = os.RemoveAll(dir)
			err = os.Mkdir(dir, 0o755)
		}
	}
	if err != nil {
		if os.IsExist(err) {
			if owner, ok := readLockOwner(dir); ok {
				return Lock{}, fmt.Errorf(
					"queue is locked: %s (pid=%d command=%q created_at=%s host=%s)",
					target, owner.PID, owner.Command, owner.CreatedAt, owner.Hostname,
				)
			}
			return Lock{}, fmt.Errorf("queue is locked: %s", target)
		}
		return Lock{}, fmt.Errorf("acquire queue lock for %s: %w", target, err)
	}

	owner := lockOwner{
		PID:       os.Getpid(),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Hostname:  hostnameOrUnknown(),
		Command:   command,
	}
	data, err := json.Marshal(owner)
	if err == nil {
		err = utils.WriteFileAtomic(filepath.Join(dir, lockOwnerFile), data)
	}
	if err != nil {
		_ = os.RemoveAll(dir)
		return Lock{}, fmt.Errorf("write queue lock owner for %s: %w", target, err)
	}
	return Lock{dir: dir}, nil
}

// Release removes the lock. Releasing the zero Lock is a no-op.
func (l Lock) Release() error {
	if strings.TrimSpace(l.dir) == "" {
		return nil
	}
	_ = os.Remove(filepath.Join(l.dir, lockOwnerFile))
	if err := os.Remove(l.dir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("release queue lock %s: %w", l.dir, err)
	}
	return nil
}

func readLockOwner(dir string) (lockOwner, bool) {
	var owner lockOwner
	data, err := os.ReadFile(filepath.Join(dir, lockOwnerFile))
	if err != nil || json.Unmarshal(data, &owner) != nil || owner.PID <= 0 {
		return lockOwner{}, false
	}
	return owner, true
}

// ownerGone reports whether the lock owner ran on this host and its process
// no longer exists. Owners on other hosts are never considered gone.
func ownerGone(owner lockOwner) bool {
	if owner.Hostname != hostnameOrUnknown() {
		return false
	}
	return !processAlive(owner.PID)
}

func hostnameOrUnknown() string {
	host, err := os.Hostname()
	if err != nil || strings.TrimSpace(host) == "" {
		return "unknown"
	}
	return strings.TrimSpace(host)
}
