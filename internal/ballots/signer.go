package ballots

import (
	"crypto/x509"
	"fmt"
	"strings"

	"ballot-backend/internal/pdfsig"
	"ballot-backend/internal/shared/telemetry"
)

// SignatureValidator finds and verifies embedded signatures.
type SignatureValidator interface {
	EmbeddedSignatures(doc []byte) ([]pdfsig.Signature, error)
	ValidateSignature(sig pdfsig.Signature, constraints pdfsig.KeyUsageConstraints) (pdfsig.Status, error)
}

type checkKind int

const (
	checkValid checkKind = iota
	checkInvalid
	checkValidatorError
)

// signatureCheck is the result of validating one embedded signature.
type signatureCheck struct {
	kind   checkKind
	status pdfsig.Status
	err    error
}

// SignerVerifier accepts a document when one of its signatures is valid,
// intact and made by an allow-listed signer.
type SignerVerifier struct {
	Validator SignatureValidator
	Signers   SignerAllowList
}

// Verify returns the trusted signer name or a rejection. It has no side effects.
func (v SignerVerifier) Verify(doc []byte) (name string, rej *Rejection) {
	defer func() {
		if rec := recover(); rec != nil {
			name = ""
			rej = reject(ReasonInvalidSignature, fmt.Sprintf("Signature verification failed: %v", rec))
		}
	}()

	sigs, err := v.Validator.EmbeddedSignatures(doc)
	if err != nil {
		return "", reject(ReasonInvalidSignature, "Signature verification failed: "+err.Error())
	}
	if len(sigs) == 0 {
		return "", reject(ReasonNoSignature, "PDF does not contain any digital signatures")
	}

	var candidates []string
	for _, sig := range sigs {
		check := v.check(sig)
		switch check.kind {
		case checkValidatorError:
			telemetry.Warn("ballot.signature.error", map[string]any{
				"index": sig.Index,
				"error": check.err.Error(),
			})
			continue
		case checkInvalid:
			telemetry.Info("ballot.signature.invalid", map[string]any{
				"index":   sig.Index,
				"problem": check.status.Problem,
			})
			continue
		}

		signer := pdfsig.SignerName(check.status.SigningCert)
		candidates = append(candidates, signer)
		if v.trusts(check.status.SigningCert, signer) {
			return signer, nil
		}
	}

	found := "None"
	if len(candidates) > 0 {
		found = strings.Join(candidates, "; ")
	}
	rej = reject(ReasonUnknownSigner, "PDF signature is not from a recognized government authority. Found: "+found)
	rej.Candidates = candidates
	return "", rej
}

// trusts matches the display name, then the labelled subject so an authority
// named only in O or OU is recognised.
func (v SignerVerifier) trusts(cert *x509.Certificate, name string) bool {
	if _, ok := v.Signers.Match(name); ok {
		return true
	}
	summary := pdfsig.SubjectSummary(cert)
	if summary == "" || summary == name {
		return false
	}
	_, ok := v.Signers.Match(summary)
	return ok
}

func (v SignerVerifier) check(sig pdfsig.Signature) signatureCheck {
	status, err := v.Validator.ValidateSignature(sig, pdfsig.SigningUsage)
	switch {
	case err != nil:
		return signatureCheck{kind: checkValidatorError, err: err}
	case !status.Valid || !status.Intact || status.SigningCert == nil:
		return signatureCheck{kind: checkInvalid, status: status}
	default:
		return signatureCheck{kind: checkValid, status: status}
	}
}
