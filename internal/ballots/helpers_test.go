package ballots

import (
	"context"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"strings"
	"testing"
	"time"

	"ballot-backend/internal/pdfsig"
	"ballot-backend/internal/pdfsig/pdfsigtest"
)

const testSalt = "test-salt"

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeSig scripts the validator's answer for one embedded signature.
type fakeSig struct {
	name    string
	problem string
	err     error
	panics  bool
}

type fakeValidator struct {
	sigs    []fakeSig
	scanErr error
}

func trustedValidator() fakeValidator {
	return fakeValidator{sigs: []fakeSig{{name: "HELLENIC REPUBLIC"}}}
}

func (f fakeValidator) EmbeddedSignatures(doc []byte) ([]pdfsig.Signature, error) {
	if f.scanErr != nil {
		return nil, f.scanErr
	}
	out := make([]pdfsig.Signature, len(f.sigs))
	for i := range f.sigs {
		out[i] = pdfsig.Signature{Index: i, CoversWholeDocument: true}
	}
	return out, nil
}

func (f fakeValidator) ValidateSignature(sig pdfsig.Signature, _ pdfsig.KeyUsageConstraints) (pdfsig.Status, error) {
	s := f.sigs[sig.Index]
	if s.panics {
		panic("validator exploded")
	}
	if s.err != nil {
		return pdfsig.Status{}, s.err
	}
	cert := &x509.Certificate{Subject: pkix.Name{CommonName: s.name}}
	if s.problem != "" {
		return pdfsig.Status{SigningCert: cert, Problem: s.problem}, nil
	}
	return pdfsig.Status{Valid: true, Intact: true, SigningCert: cert}, nil
}

// textExtractor treats the document bytes as its text.
type textExtractor struct {
	err    error
	panics bool
}

func (e textExtractor) ExtractText(ctx context.Context, doc []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if e.panics {
		panic("extractor exploded")
	}
	if e.err != nil {
		return "", e.err
	}
	return string(doc), nil
}

func declaration(afm, choice, token string) []byte {
	return []byte(strings.Join(pdfsigtest.Declaration(afm, choice, token), "\n"))
}

func testPolicy(t *testing.T) Policy {
	t.Helper()
	signers, err := NewSignerAllowList([]string{"HELLENIC REPUBLIC", "gov.gr"})
	if err != nil {
		t.Fatalf("allow list: %v", err)
	}
	return Policy{Signers: signers, Salt: testSalt}
}

func newTestPipeline(t *testing.T, policy Policy, v SignatureValidator, e TextExtractor, store Store) *Pipeline {
	t.Helper()
	p := NewPipeline(policy, v, e, store)
	p.now = func() time.Time { return fixedNow }
	return p
}

// failingStore fails every call with err.
type failingStore struct {
	err error
}

func (s failingStore) FindByFingerprint(context.Context, string) (Vote, error) {
	return Vote{}, s.err
}

func (s failingStore) FindByIdentity(context.Context, string, string) (Vote, error) {
	return Vote{}, s.err
}

func (s failingStore) Record(context.Context, Vote, bool) error {
	return s.err
}

func (s failingStore) Tally(context.Context, string) (Tally, error) {
	return Tally{}, s.err
}

var errStoreDown = errors.New("store down")
