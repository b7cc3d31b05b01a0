package scanner

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math"
	"strings"
	"time"
)

// expiringSoonDays is the exclusive threshold below which a valid
// certificate is reported as expiring soon.
const expiringSoonDays = 30

var attributeNames = map[string]string{
	"2.5.4.3":                    "CN",
	"2.5.4.5":                    "SERIALNUMBER",
	"2.5.4.6":                    "C",
	"2.5.4.7":                    "L",
	"2.5.4.8":                    "ST",
	"2.5.4.9":                    "STREET",
	"2.5.4.10":                   "O",
	"2.5.4.11":                   "OU",
	"2.5.4.17":                   "postalCode",
	"1.2.840.113549.1.9.1":       "emailAddress",
	"0.9.2342.19200300.100.1.25": "DC",
}

// AnalyzeCertificate parses a DER certificate and evaluates its validity
// relative to now. Parse failures are reported in AnalysisError and leave
// every other field zero.
func AnalyzeCertificate(der []byte, now time.Time) CertificateInfo {
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return CertificateInfo{
			SubjectAltNames: []string{},
			AnalysisError:   err.Error(),
		}
	}
	return describeCertificate(cert, now)
}

func describeCertificate(cert *x509.Certificate, now time.Time) CertificateInfo {
	days := daysUntil(cert.NotAfter, now)
	expired := now.After(cert.NotAfter)

	return CertificateInfo{
		Subject:            formatName(cert.Subject),
		Issuer:             formatName(cert.Issuer),
		ValidFrom:          cert.NotBefore.UTC().Format(time.RFC3339),
		ValidTo:            cert.NotAfter.UTC().Format(time.RFC3339),
		DaysUntilExpiry:    days,
		IsExpired:          expired,
		IsExpiringSoon:     !expired && days < expiringSoonDays,
		Fingerprint:        fingerprintSHA256(cert.Raw),
		SerialNumber:       strings.ToUpper(cert.SerialNumber.Text(16)),
		SignatureAlgorithm: cert.SignatureAlgorithm.String(),
		KeyBitLength:       keyBitLength(cert.PublicKey),
		SubjectAltNames:    subjectAltNames(cert),
	}
}

// daysUntil returns the floor of whole days from now to t; negative once t has passed.
func daysUntil(t, now time.Time) int {
	return int(math.Floor(t.Sub(now).Hours() / 24))
}

// formatName renders a distinguished name as "CN=x, O=y" in encoded order.
// It is meant for display and does not escape RFC 4514 special characters.
func formatName(name pkix.Name) string {
	parts := make([]string, 0, len(name.Names))
	for _, atv := range name.Names {
		key, ok := attributeNames[atv.Type.String()]
		if !ok {
			key = atv.Type.String()
		}
		parts = append(parts, fmt.Sprintf("%s=%v", key, atv.Value))
	}
	return strings.Join(parts, ", ")
}

func fingerprintSHA256(raw []byte) string {
	sum := sha256.Sum256(raw)
	pairs := make([]string, len(sum))
	for i, b := range sum {
		pairs[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(pairs, ":")
}

func keyBitLength(pub any) int {
	switch key := pub.(type) {
	case *rsa.PublicKey:
		return key.N.BitLen()
	case *ecdsa.PublicKey:
		return key.Curve.Params().BitSize
	case ed25519.PublicKey:
		return ed25519.PublicKeySize * 8
	default:
		return 0
	}
}

// subjectAltNames lists the SAN extension as "DNS:...", "IP Address:...",
// "email:..." and "URI:..." entries. A missing extension yields an empty list.
func subjectAltNames(cert *x509.Certificate) []string {
	entries := make([]string, 0, len(cert.DNSNames)+len(cert.IPAddresses)+len(cert.EmailAddresses)+len(cert.URIs))
	for _, name := range cert.DNSNames {
		entries = append(entries, "DNS:"+name)
	}
	for _, ip := range cert.IPAddresses {
		entries = append(entries, "IP Address:"+ip.String())
	}
	for _, email := range cert.EmailAddresses {
		entries = append(entries, "email:"+email)
	}
	for _, uri := range cert.URIs {
		entries = append(entries, "URI:"+uri.String())
	}
	return splitNames(strings.Join(entries, ", "))
}

// splitNames splits a comma-separated name list, trimming entries and
// dropping empty ones.
func splitNames(raw string) []string {
	names := []string{}
	for _, name := range strings.Split(raw, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}
