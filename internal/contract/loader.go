package contract

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"golang.org/x/mod/semver"
)

// ErrVersionRegression is returned when a reload would move the contract to
// an older version.
var ErrVersionRegression = errors.New("contract version regression")

// Loader caches the active contract for lock-free concurrent reads.
type Loader struct {
	current atomic.Pointer[Contract]
}

// NewLoader returns a Loader holding c, or the built-in contract when c is nil.
func NewLoader(c *Contract) *Loader {
	if c == nil {
		c = Builtin()
	}
	l := &Loader{}
	l.current.Store(c)
	return l
}

// Open loads the contract at path, or the built-in rules when path is empty.
func Open(path string) (*Loader, error) {
	if strings.TrimSpace(path) == "" {
		return NewLoader(nil), nil
	}
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	return NewLoader(c), nil
}

// Current returns the active contract.
func (l *Loader) Current() *Contract {
	return l.current.Load()
}

// Reload reads path and swaps the active contract when its version is newer.
// An equal version is a no-op and an older one fails with ErrVersionRegression.
// The returned bool reports whether a swap happened.
func (l *Loader) Reload(path string) (*Contract, bool, error) {
	next, err := Load(path)
	if err != nil {
		return l.Current(), false, err
	}
	for {
		active := l.Current()
		switch cmp := semver.Compare(canonicalVersion(next.Version), canonicalVersion(active.Version)); {
		case cmp == 0:
			return active, false, nil
		case cmp < 0:
			return active, false, fmt.Errorf("%w: %s is older than active %s", ErrVersionRegression, next.Version, active.Version)
		}
		if l.current.CompareAndSwap(active, next) {
			return next, true, nil
		}
	}
}
