package pdfsig

import "errors"

var (
	ErrNotPDF             = errors.New("not a pdf document")
	ErrMalformedSignature = errors.New("malformed signature dictionary")
	ErrNoSigner           = errors.New("signature has no single signer")
)
