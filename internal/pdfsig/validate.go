package pdfsig

import (
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"go.mozilla.org/pkcs7"
)

// KeyUsageConstraints lists key usages a signing certificate must carry.
// With MatchAny one listed usage is enough, otherwise all are required.
// Certificates without a key usage extension are not restricted.
type KeyUsageConstraints struct {
	KeyUsage x509.KeyUsage
	MatchAny bool
}

// SigningUsage is the constraint applied to declaration signatures.
var SigningUsage = KeyUsageConstraints{
	KeyUsage: x509.KeyUsageDigitalSignature | x509.KeyUsageContentCommitment,
	MatchAny: true,
}

// Allows reports whether cert satisfies the constraints.
func (k KeyUsageConstraints) Allows(cert *x509.Certificate) bool {
	if cert == nil {
		return false
	}
	if k.KeyUsage == 0 || cert.KeyUsage == 0 {
		return true
	}
	if k.MatchAny {
		return cert.KeyUsage&k.KeyUsage != 0
	}
	return cert.KeyUsage&k.KeyUsage == k.KeyUsage
}

// Status is the outcome of validating one signature.
type Status struct {
	// Valid means the signature verifies, chains to the trust roots when set,
	// and satisfies the key usage constraints.
	Valid bool
	// Intact means the signed bytes match the signature digest and cover the
	// whole document.
	Intact      bool
	SigningCert *x509.Certificate
	// Problem explains why Valid is false.
	Problem string
}

// Validator verifies CMS signatures. A nil Roots pool skips chain building
// and trusts the signer certificate carried in the signature.
type Validator struct {
	Roots *x509.CertPool
}

// NewValidator returns a Validator trusting roots.
func NewValidator(roots *x509.CertPool) *Validator {
	return &Validator{Roots: roots}
}

// EmbeddedSignatures implements the validator side of signature discovery.
func (v *Validator) EmbeddedSignatures(doc []byte) ([]Signature, error) {
	return EmbeddedSignatures(doc)
}

// ValidateSignature verifies sig. Unparseable containers return an error;
// signatures that parse but fail verification return a Status with Valid unset.
func (v *Validator) ValidateSignature(sig Signature, constraints KeyUsageConstraints) (Status, error) {
	p7, err := pkcs7.Parse(sig.Contents)
	if err != nil {
		return Status{}, fmt.Errorf("%w: %v", ErrMalformedSignature, err)
	}
	if len(p7.Signers) != 1 {
		return Status{}, ErrNoSigner
	}
	p7.Content = sig.SignedData

	status := Status{SigningCert: p7.GetOnlySigner()}
	if status.SigningCert == nil {
		return Status{}, ErrNoSigner
	}

	if err := p7.Verify(); err != nil {
		var mismatch *pkcs7.MessageDigestMismatchError
		if errors.As(err, &mismatch) {
			status.Problem = "signed content was modified"
		} else {
			status.Problem = "signature does not verify: " + err.Error()
		}
		return status, nil
	}
	if !sig.CoversWholeDocument {
		status.Problem = "document was changed after signing"
		return status, nil
	}
	status.Intact = true

	if v != nil && v.Roots != nil {
		if err := p7.VerifyWithChain(v.Roots); err != nil {
			status.Problem = "certificate is not trusted: " + err.Error()
			return status, nil
		}
	}
	if !constraints.Allows(status.SigningCert) {
		status.Problem = "certificate key usage does not permit signing"
		return status, nil
	}
	status.Valid = true
	return status, nil
}

// LoadRoots reads a PEM bundle of trusted certificates.
func LoadRoots(path string) (*x509.CertPool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	count := 0
	for len(raw) > 0 {
		var block *pem.Block
		block, raw = pem.Decode(raw)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse trust root %d: %w", count+1, err)
		}
		pool.AddCert(cert)
		count++
	}
	if count == 0 {
		return nil, fmt.Errorf("no certificates in %s", path)
	}
	return pool, nil
}
