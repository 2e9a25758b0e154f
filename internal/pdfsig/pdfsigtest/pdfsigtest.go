// Package pdfsigtest builds small PDF declarations, optionally signed with
// throwaway certificates, for tests across the module.
package pdfsigtest

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"testing"
	"time"

	"go.mozilla.org/pkcs7"
)

// contentsSize is the reserved size in bytes of the /Contents hole.
const contentsSize = 8192

// CertOptions describes a test certificate.
type CertOptions struct {
	CommonName   string
	Organization string
	// KeyUsage defaults to DigitalSignature|ContentCommitment unless OmitKeyUsage is set.
	KeyUsage     x509.KeyUsage
	OmitKeyUsage bool
	// Parent issues the certificate; nil means self-signed.
	Parent *Identity
	IsCA   bool
}

// Identity is a certificate with its private key.
type Identity struct {
	Cert *x509.Certificate
	Key  *rsa.PrivateKey
}

// NewIdentity generates a certificate valid from an hour ago for a day.
func NewIdentity(t testing.TB, opts CertOptions) *Identity {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 62))
	if err != nil {
		t.Fatalf("serial: %v", err)
	}

	subject := pkix.Name{CommonName: opts.CommonName}
	if opts.Organization != "" {
		subject.Organization = []string{opts.Organization}
	}
	tmpl := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               subject,
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		BasicConstraintsValid: true,
		IsCA:                  opts.IsCA,
	}
	switch {
	case opts.OmitKeyUsage:
	case opts.KeyUsage != 0:
		tmpl.KeyUsage = opts.KeyUsage
	case opts.IsCA:
		tmpl.KeyUsage = x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature
	default:
		tmpl.KeyUsage = x509.KeyUsageDigitalSignature | x509.KeyUsageContentCommitment
	}

	parentCert, parentKey := tmpl, key
	if opts.Parent != nil {
		parentCert, parentKey = opts.Parent.Cert, opts.Parent.Key
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, parentCert, &key.PublicKey, parentKey)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("parse certificate: %v", err)
	}
	return &Identity{Cert: cert, Key: key}
}

// Declaration returns declaration text lines in the shape the gov.gr
// solemn-declaration service produces.
func Declaration(afm, choice, token string) []string {
	return []string{
		"SOLEMN DECLARATION",
		"AFM: " + afm,
		"I, the undersigned, cast my valid vote for [" + choice + "] in the Community Poll.",
		"Security Token: " + token,
	}
}

// Layout selects how text lines are positioned in the content stream.
type Layout int

const (
	// LayoutNextLine advances with T* and ends each line with a space.
	LayoutNextLine Layout = iota
	// LayoutMoveText advances with Td and no separator, as most producers do.
	// Extracted text then runs lines together.
	LayoutMoveText
)

// Options tune how a test PDF is produced.
type Options struct {
	Layout Layout
	// IndefiniteLength re-encodes the outer CMS SEQUENCE with a BER
	// indefinite length and end-of-contents marker.
	IndefiniteLength bool
}

// UnsignedPDF renders lines into a one-page PDF without a signature.
func UnsignedPDF(lines ...string) []byte {
	return UnsignedPDFWith(Options{}, lines...)
}

// UnsignedPDFWith is UnsignedPDF with explicit options.
func UnsignedPDFWith(opts Options, lines ...string) []byte {
	doc, _ := build(lines, opts.Layout, false)
	return doc
}

// SignedPDF renders lines into a one-page PDF carrying one detached CMS
// signature made by id. Certificates in chain are embedded next to id's.
func SignedPDF(t testing.TB, id *Identity, chain []*x509.Certificate, lines ...string) []byte {
	t.Helper()
	return SignedPDFWith(t, id, chain, Options{}, lines...)
}

// SignedPDFWith is SignedPDF with explicit options.
func SignedPDFWith(t testing.TB, id *Identity, chain []*x509.Certificate, opts Options, lines ...string) []byte {
	t.Helper()

	doc, hole := build(lines, opts.Layout, true)
	byteRange := [4]int{0, hole.start, hole.end, len(doc) - hole.end}
	brText := fmt.Sprintf("[0 %-10d %-10d %-10d]", byteRange[1], byteRange[2], byteRange[3])
	copy(doc[hole.rangeAt:], brText)

	signed := make([]byte, 0, byteRange[1]+byteRange[3])
	signed = append(signed, doc[:byteRange[1]]...)
	signed = append(signed, doc[byteRange[2]:]...)

	sd, err := pkcs7.NewSignedData(signed)
	if err != nil {
		t.Fatalf("new signed data: %v", err)
	}
	sd.SetDigestAlgorithm(pkcs7.OIDDigestAlgorithmSHA256)
	if len(chain) > 0 {
		err = sd.AddSignerChain(id.Cert, id.Key, chain, pkcs7.SignerInfoConfig{})
	} else {
		err = sd.AddSigner(id.Cert, id.Key, pkcs7.SignerInfoConfig{})
	}
	if err != nil {
		t.Fatalf("add signer: %v", err)
	}
	sd.Detach()
	der, err := sd.Finish()
	if err != nil {
		t.Fatalf("finish signature: %v", err)
	}
	if opts.IndefiniteLength {
		der = indefiniteLength(t, der)
	}
	if len(der) > contentsSize {
		t.Fatalf("signature of %d bytes exceeds reserved %d", len(der), contentsSize)
	}

	encoded := strings.ToUpper(hex.EncodeToString(der))
	copy(doc[hole.start+1:], encoded)
	return doc
}

// indefiniteLength rewrites the outer SEQUENCE header of der as 30 80 and
// appends the end-of-contents marker.
func indefiniteLength(t testing.TB, der []byte) []byte {
	t.Helper()
	if len(der) < 2 || der[0] != 0x30 {
		t.Fatalf("signature is not a DER SEQUENCE")
	}
	header := 2
	if der[1]&0x80 != 0 {
		header += int(der[1] & 0x7f)
	}
	out := make([]byte, 0, len(der)+2)
	out = append(out, 0x30, 0x80)
	out = append(out, der[header:]...)
	return append(out, 0x00, 0x00)
}

type holeInfo struct {
	start   int // offset of '<'
	end     int // offset just past '>'
	rangeAt int // offset of the ByteRange array
}

const byteRangePlaceholder = "[0 0          0          0         ]"

func build(lines []string, layout Layout, withSignature bool) ([]byte, holeInfo) {
	var content bytes.Buffer
	content.WriteString("BT\n/F1 12 Tf\n16 TL\n72 720 Td\n")
	for _, line := range lines {
		switch layout {
		case LayoutMoveText:
			fmt.Fprintf(&content, "(%s) Tj\n0 -16 Td\n", escape(line))
		default:
			fmt.Fprintf(&content, "(%s ) Tj\nT*\n", escape(line))
		}
	}
	content.WriteString("ET\n")

	catalog := "<< /Type /Catalog /Pages 2 0 R >>"
	page := "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>"
	if withSignature {
		catalog = "<< /Type /Catalog /Pages 2 0 R /AcroForm << /Fields [7 0 R] /SigFlags 3 >> >>"
		page = "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R /Annots [7 0 R] >>"
	}
	objects := []string{
		catalog,
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		page,
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", content.Len(), content.String()),
	}
	if withSignature {
		objects = append(objects,
			"<< /Type /Sig /Filter /Adobe.PPKLite /SubFilter /adbe.pkcs7.detached /ByteRange "+
				byteRangePlaceholder+" /Contents <"+strings.Repeat("0", contentsSize*2)+"> /M (D:20260101000000Z) >>",
			"<< /Type /Annot /Subtype /Widget /FT /Sig /T (Signature1) /V 6 0 R /Rect [0 0 0 0] /P 3 0 R /F 132 >>",
		)
	}

	var out bytes.Buffer
	out.WriteString("%PDF-1.7\n%\xE2\xE3\xCF\xD3\n")
	offsets := make([]int, len(objects))
	var hole holeInfo
	for i, obj := range objects {
		offsets[i] = out.Len()
		fmt.Fprintf(&out, "%d 0 obj\n", i+1)
		if withSignature && i == 5 {
			base := out.Len()
			hole.rangeAt = base + strings.Index(obj, byteRangePlaceholder)
			hole.start = base + strings.Index(obj, "/Contents <") + len("/Contents ")
			hole.end = hole.start + contentsSize*2 + 2
		}
		out.WriteString(obj)
		out.WriteString("\nendobj\n")
	}

	xref := out.Len()
	fmt.Fprintf(&out, "xref\n0 %d\n", len(objects)+1)
	out.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&out, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&out, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return out.Bytes(), hole
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`)
	return r.Replace(s)
}
