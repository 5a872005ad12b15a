// Package runlock provides a file-based advisory lock so two scheduled
// pipeline runs never mutate the spot table concurrently. The lock file
// carries the holder's PID and start time and expires after a configured
// staleness window, so a crashed run cannot wedge the schedule.
package runlock

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

type payload struct {
	PID       int       `json:"pid"`
	StartedAt time.Time `json:"started_at"`
}

// Lock is a single-file advisory lock.
type Lock struct {
	path       string
	staleAfter time.Duration
}

func New(path string, staleAfter time.Duration) *Lock {
	if staleAfter <= 0 {
		staleAfter = 30 * time.Minute
	}
	return &Lock{path: path, staleAfter: staleAfter}
}

// Acquire takes the lock, breaking a stale one if its holder started
// longer ago than the staleness window. Returns an error when another
// live run holds it.
func (l *Lock) Acquire() error {
	if err := l.tryCreate(); err == nil {
		return nil
	} else if !os.IsExist(err) {
		return eris.Wrapf(err, "runlock: create %s", l.path)
	}

	holder, err := l.read()
	if err != nil {
		// Unreadable lock files are treated as stale; a half-written
		// payload means the holder died mid-acquire.
		zap.L().Warn("runlock: unreadable lock file, breaking it",
			zap.String("path", l.path), zap.Error(err))
	} else {
		age := time.Since(holder.StartedAt)
		if age < l.staleAfter {
			return eris.Errorf("runlock: held by pid %d since %s",
				holder.PID, holder.StartedAt.Format(time.RFC3339))
		}
		zap.L().Warn("runlock: breaking stale lock",
			zap.Int("pid", holder.PID),
			zap.Duration("age", age))
	}

	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return eris.Wrapf(err, "runlock: remove stale %s", l.path)
	}
	if err := l.tryCreate(); err != nil {
		return eris.Wrapf(err, "runlock: reacquire %s", l.path)
	}
	return nil
}

// Release removes the lock file. Releasing an already-released lock is
// not an error.
func (l *Lock) Release() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return eris.Wrapf(err, "runlock: release %s", l.path)
	}
	return nil
}

func (l *Lock) tryCreate() error {
	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := json.Marshal(payload{PID: os.Getpid(), StartedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	_, err = f.Write(data)
	return err
}

func (l *Lock) read() (*payload, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, err
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	if p.StartedAt.IsZero() {
		return nil, eris.New("missing started_at")
	}
	return &p, nil
}
