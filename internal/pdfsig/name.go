package pdfsig

import (
	"crypto/x509"
	"fmt"
	"strings"
)

// SignerName derives a display name for cert. It prefers the common name,
// then a labelled subject summary, the RFC 2253 subject, raw attribute and
// alternative-name values, and finally the serial number. It never panics.
func SignerName(cert *x509.Certificate) (name string) {
	if cert == nil {
		return "Certificate(unknown)"
	}
	defer func() {
		if recover() != nil {
			name = fallbackName(cert)
		}
	}()

	if cn := strings.TrimSpace(cert.Subject.CommonName); cn != "" {
		return cn
	}
	if friendly := friendlySubject(cert); friendly != "" {
		return friendly
	}
	if s := strings.TrimSpace(cert.Subject.String()); s != "" {
		return s
	}
	if raw := rawValues(cert); raw != "" {
		return raw
	}
	return fallbackName(cert)
}

// SubjectSummary is the labelled "Common Name: ..., Organization: ..." form of
// the subject, or "" when it carries none of those attributes.
func SubjectSummary(cert *x509.Certificate) string {
	if cert == nil {
		return ""
	}
	return friendlySubject(cert)
}

func friendlySubject(cert *x509.Certificate) string {
	var parts []string
	if cn := strings.TrimSpace(cert.Subject.CommonName); cn != "" {
		parts = append(parts, "Common Name: "+cn)
	}
	for _, org := range cert.Subject.Organization {
		if org = strings.TrimSpace(org); org != "" {
			parts = append(parts, "Organization: "+org)
		}
	}
	for _, unit := range cert.Subject.OrganizationalUnit {
		if unit = strings.TrimSpace(unit); unit != "" {
			parts = append(parts, "Organizational Unit: "+unit)
		}
	}
	return strings.Join(parts, ", ")
}

func rawValues(cert *x509.Certificate) string {
	var values []string
	for _, atv := range cert.Subject.Names {
		if s := strings.TrimSpace(fmt.Sprint(atv.Value)); s != "" {
			values = append(values, s)
		}
	}
	values = append(values, cert.EmailAddresses...)
	values = append(values, cert.DNSNames...)
	return strings.Join(values, ", ")
}

func fallbackName(cert *x509.Certificate) string {
	if cert.SerialNumber == nil {
		return "Certificate(serial=unknown)"
	}
	return fmt.Sprintf("Certificate(serial=%s)", cert.SerialNumber.String())
}
