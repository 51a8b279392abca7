package web

import (
	"strings"
	"sync"
)

// Location holds the redirect address the browser landed on, as reported by
// the callback page. It is the session's view of the browser address bar.
type Location struct {
	mu       sync.Mutex
	fragment string
	query    string
}

// Set records a redirect. Leading '#' and '?' are stripped.
func (l *Location) Set(fragment, query string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fragment = strings.TrimPrefix(fragment, "#")
	l.query = strings.TrimPrefix(query, "?")
}

func (l *Location) Fragment() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fragment
}

func (l *Location) Query() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.query
}

func (l *Location) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fragment = ""
	l.query = ""
}
