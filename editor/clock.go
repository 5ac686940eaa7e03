package editor

import "time"

// Clock schedules the controller's delayed work. Tests substitute a manual
// clock; production uses the runtime timer.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a scheduled call.
type Timer interface {
	Stop() bool
}

// SystemClock runs callbacks on time.AfterFunc goroutines.
type SystemClock struct{}

// AfterFunc implements Clock.
func (SystemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
