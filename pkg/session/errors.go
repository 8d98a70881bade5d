package session

import "errors"

// Sentinel errors the dispatcher classifies into spec.md §7's error
// taxonomy. Leaf packages return plain errors; handlers wrap them with
// one of these via fmt.Errorf("...: %w", sentinel) so the dispatcher can
// tell errors.Is(err, ErrGraphNotLoaded) apart from an I/O failure.
var (
	ErrInputInvalid      = errors.New("input invalid")
	ErrGraphNotLoaded    = errors.New("no active graph")
	ErrIO                = errors.New("i/o error")
	ErrUpstream          = errors.New("upstream error")
	ErrInternalInvariant = errors.New("internal invariant violated")
	ErrIterationCap      = errors.New("enumeration iteration cap reached")

	// errSwitchDuringEnumeration is the one session-scoped concurrency
	// rule spec.md §5 calls out by name: switching is disallowed while an
	// enumeration on this session is active.
	errSwitchDuringEnumeration = errors.New("cannot switch graphs while an enumeration is active")
)
