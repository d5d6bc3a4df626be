package integration

import (
	"sync"
	"time"
)

// FireOnceTrigger fires immediately on the first query and never again
// until Reset.
type FireOnceTrigger struct {
	mu    sync.Mutex
	fired bool
}

// NextFireTime returns now and true when armed, disarming the trigger.
// Once fired it returns false.
func (t *FireOnceTrigger) NextFireTime(now time.Time) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.fired {
		return time.Time{}, false
	}
	t.fired = true
	return now, true
}

// Reset re-arms exactly one future fire
func (t *FireOnceTrigger) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fired = false
}
