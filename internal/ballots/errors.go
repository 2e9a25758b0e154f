package ballots

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrInvalidInput         = errors.New("invalid input")
	ErrDuplicateFingerprint = errors.New("duplicate fingerprint")
	ErrDuplicateIdentity    = errors.New("duplicate identity")
)
