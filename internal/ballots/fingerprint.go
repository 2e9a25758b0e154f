package ballots

import (
	"context"
	"errors"

	"ballot-backend/internal/shared/util"
)

// Fingerprint is the lowercase hex SHA-256 of the complete document.
func Fingerprint(doc []byte) string {
	return util.SHA256Hex(doc)
}

// FingerprintGuard rejects documents that were already accepted.
type FingerprintGuard struct {
	Store Store
}

// Check looks fp up in the store. Lookup failures are returned as errors.
func (g FingerprintGuard) Check(ctx context.Context, fp string) (*Rejection, error) {
	_, err := g.Store.FindByFingerprint(ctx, fp)
	switch {
	case errors.Is(err, ErrNotFound):
		return nil, nil
	case err != nil:
		return nil, err
	}
	rej := reject(ReasonDuplicateFile, "This declaration has already been submitted")
	rej.Fingerprint = fp
	return rej, nil
}
