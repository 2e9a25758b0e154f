package ballots

import (
	"errors"
	"strings"
	"testing"

	"ballot-backend/internal/pdfsig"
	"ballot-backend/internal/pdfsig/pdfsigtest"
)

func TestSignerVerifier(t *testing.T) {
	signers := testPolicy(t).Signers
	cases := []struct {
		name      string
		validator fakeValidator
		wantName  string
		want      Reason
		message   string
	}{
		{name: "trusted", validator: trustedValidator(), wantName: "HELLENIC REPUBLIC"},
		{name: "no signatures", validator: fakeValidator{}, want: ReasonNoSignature},
		{name: "unparseable", validator: fakeValidator{scanErr: pdfsig.ErrNotPDF}, want: ReasonInvalidSignature},
		{
			name:      "untrusted signer",
			validator: fakeValidator{sigs: []fakeSig{{name: "ACME Root CA"}}},
			want:      ReasonUnknownSigner,
			message:   "Found: ACME Root CA",
		},
		{
			name:      "only invalid signatures",
			validator: fakeValidator{sigs: []fakeSig{{name: "HELLENIC REPUBLIC", problem: "signed content was modified"}}},
			want:      ReasonUnknownSigner,
			message:   "Found: None",
		},
		{
			name:      "second signature trusted",
			validator: fakeValidator{sigs: []fakeSig{{name: "ACME Root CA"}, {name: "gov.gr signing service"}}},
			wantName:  "gov.gr signing service",
		},
		{
			name:      "validator error is skipped",
			validator: fakeValidator{sigs: []fakeSig{{err: errors.New("bad cms")}, {name: "HELLENIC REPUBLIC"}}},
			wantName:  "HELLENIC REPUBLIC",
		},
		{name: "panic", validator: fakeValidator{sigs: []fakeSig{{panics: true}}}, want: ReasonInvalidSignature, message: "validator exploded"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			name, rej := SignerVerifier{Validator: tc.validator, Signers: signers}.Verify([]byte("doc"))
			if tc.want == "" {
				if rej != nil {
					t.Fatalf("expected trusted signer, got %+v", rej)
				}
				if name != tc.wantName {
					t.Fatalf("got signer %q, want %q", name, tc.wantName)
				}
				return
			}
			if rej == nil || rej.Reason != tc.want {
				t.Fatalf("expected %s, got %+v (name %q)", tc.want, rej, name)
			}
			if !strings.Contains(rej.Message, tc.message) {
				t.Fatalf("message %q does not contain %q", rej.Message, tc.message)
			}
		})
	}
}

func TestSignerVerifierListsCandidates(t *testing.T) {
	v := fakeValidator{sigs: []fakeSig{{name: "ACME Root CA"}, {name: "Example Corp"}}}
	_, rej := SignerVerifier{Validator: v, Signers: testPolicy(t).Signers}.Verify([]byte("doc"))
	if rej == nil || rej.Reason != ReasonUnknownSigner {
		t.Fatalf("expected UNKNOWN_SIGNER, got %+v", rej)
	}
	if len(rej.Candidates) != 2 || !strings.HasSuffix(rej.Message, "Found: ACME Root CA; Example Corp") {
		t.Fatalf("unexpected candidates %v / message %q", rej.Candidates, rej.Message)
	}
}

func TestSignerVerifierWithRealSignatures(t *testing.T) {
	signers := testPolicy(t).Signers
	verifier := SignerVerifier{Validator: pdfsig.NewValidator(nil), Signers: signers}

	gov := pdfsigtest.NewIdentity(t, pdfsigtest.CertOptions{CommonName: "HELLENIC REPUBLIC", Organization: "Ministry of Digital Governance"})
	doc := pdfsigtest.SignedPDF(t, gov, nil, pdfsigtest.Declaration("123456789", "YES", "tok-1")...)
	if name, rej := verifier.Verify(doc); rej != nil || name != "HELLENIC REPUBLIC" {
		t.Fatalf("expected trusted signature, got %q %+v", name, rej)
	}

	if _, rej := verifier.Verify(pdfsigtest.UnsignedPDF("hello")); rej == nil || rej.Reason != ReasonNoSignature {
		t.Fatalf("expected NO_SIGNATURE, got %+v", rej)
	}
	if _, rej := verifier.Verify([]byte("not a pdf")); rej == nil || rej.Reason != ReasonInvalidSignature {
		t.Fatalf("expected INVALID_SIGNATURE, got %+v", rej)
	}

	service := pdfsigtest.NewIdentity(t, pdfsigtest.CertOptions{CommonName: "Signing Service 2026", Organization: "Hellenic Republic"})
	doc = pdfsigtest.SignedPDF(t, service, nil, pdfsigtest.Declaration("123456789", "YES", "tok-1")...)
	if name, rej := verifier.Verify(doc); rej != nil || name != "Signing Service 2026" {
		t.Fatalf("expected authority in organization to be trusted, got %q %+v", name, rej)
	}

	stranger := pdfsigtest.NewIdentity(t, pdfsigtest.CertOptions{CommonName: "Self Signed Person"})
	doc = pdfsigtest.SignedPDF(t, stranger, nil, pdfsigtest.Declaration("123456789", "YES", "tok-1")...)
	if _, rej := verifier.Verify(doc); rej == nil || rej.Reason != ReasonUnknownSigner || !strings.Contains(rej.Message, "Self Signed Person") {
		t.Fatalf("expected UNKNOWN_SIGNER naming the signer, got %+v", rej)
	}
}
