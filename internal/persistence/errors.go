package persistence

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrStaleVersion is matched by every *StaleVersionError.
	ErrStaleVersion = errors.New("persistence: stale version")
)

// StaleVersionError reports a save whose version is not exactly one greater
// than the stored version. Actual is zero when nothing is stored yet.
type StaleVersionError struct {
	Expected int
	Actual   int
}

func (e *StaleVersionError) Error() string {
	return fmt.Sprintf("persistence: stale version: saving version %d over stored version %d", e.Expected, e.Actual)
}

// Is makes errors.Is(err, ErrStaleVersion) hold.
func (e *StaleVersionError) Is(target error) bool {
	return target == ErrStaleVersion
}

// CheckVersion applies the optimistic-concurrency rule shared by every store:
// the first save must carry version 1 and each later save the stored version
// plus one. stored is ignored when exists is false.
func CheckVersion(stored int, exists bool, version int) error {
	if !exists {
		if version == 1 {
			return nil
		}
		return &StaleVersionError{Expected: version, Actual: 0}
	}
	if version == stored+1 {
		return nil
	}
	return &StaleVersionError{Expected: version, Actual: stored}
}
