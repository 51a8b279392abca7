package session

import (
	"time"
)

// State is the session controller state.
type State int

const (
	Uninitialized State = iota
	CheckingAuth
	LoggedOut
	Active
	Paused
	Failed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case CheckingAuth:
		return "checking_auth"
	case LoggedOut:
		return "logged_out"
	case Active:
		return "active"
	case Paused:
		return "paused"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Location is the address the redirect landed on. Fragment and Query return
// the raw strings without their leading '#' or '?'. Clear removes both so a
// reload does not replay the redirect.
type Location interface {
	Fragment() string
	Query() string
	Clear()
}

// Ticker is a stoppable repeating timer.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFunc creates a Ticker firing every d.
type TickerFunc func(d time.Duration) Ticker

// NewTicker wraps time.NewTicker.
func NewTicker(d time.Duration) Ticker {
	return &timeTicker{t: time.NewTicker(d)}
}

type timeTicker struct {
	t *time.Ticker
}

func (t *timeTicker) C() <-chan time.Time { return t.t.C }
func (t *timeTicker) Stop()               { t.t.Stop() }
