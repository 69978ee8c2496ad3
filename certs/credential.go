package certs

import (
	"crypto"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// Credential is an immutable certificate/key pair. Reloading key
// material means constructing a new Credential and swapping the
// reference, never mutating an existing one.
type Credential struct {
	CertificatePEM string
	PrivateKeyPEM  string
}

// Keypair parses the PEM pair into a tls.Certificate suitable for
// signing, with Leaf populated. PKCS#1 and PKCS#8 keys are accepted;
// the key must be RSA.
func (c Credential) Keypair() (tls.Certificate, error) {
	certBlock, _ := pem.Decode([]byte(c.CertificatePEM))
	if certBlock == nil {
		return tls.Certificate{}, errors.New("cannot decode certificate PEM")
	}
	cert, err := x509.ParseCertificate(certBlock.Bytes)
	if err != nil {
		return tls.Certificate{}, errors.Wrap(err, "parsing certificate")
	}

	keyBlock, _ := pem.Decode([]byte(c.PrivateKeyPEM))
	if keyBlock == nil {
		return tls.Certificate{}, errors.New("cannot decode private key PEM")
	}
	var key crypto.PrivateKey
	if k, err := x509.ParsePKCS1PrivateKey(keyBlock.Bytes); err == nil {
		key = k
	} else {
		pkcs8Key, err := x509.ParsePKCS8PrivateKey(keyBlock.Bytes)
		if err != nil {
			return tls.Certificate{}, errors.Wrap(err, "parsing private key")
		}
		rsaKey, ok := pkcs8Key.(*rsa.PrivateKey)
		if !ok {
			return tls.Certificate{}, errors.New("private key is not RSA")
		}
		key = rsaKey
	}

	return tls.Certificate{
		Certificate: [][]byte{cert.Raw},
		PrivateKey:  key,
		Leaf:        cert,
	}, nil
}

var whitespacePattern = regexp.MustCompile(`\s+`)

// FormatForMetadata canonicalizes a certificate for embedding in an XML
// X509Certificate element: all whitespace and the BEGIN/END markers are
// stripped, leaving only the bare base64 payload. The function is
// idempotent, so already-bare input passes through unchanged.
func FormatForMetadata(certPEM string) string {
	s := whitespacePattern.ReplaceAllString(certPEM, "")
	s = strings.ReplaceAll(s, "-----BEGINCERTIFICATE-----", "")
	s = strings.ReplaceAll(s, "-----ENDCERTIFICATE-----", "")
	return s
}
