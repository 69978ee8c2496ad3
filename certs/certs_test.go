package certs

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"gotest.tools/assert"
	is "gotest.tools/assert/cmp"
)

func testConfig(dir string) Config {
	return Config{
		Country:            "ID",
		State:              "Banten",
		Locality:           "Kabupaten Tangerang",
		Organization:       "YourCompany",
		OrganizationalUnit: "YourDepartment",
		CommonName:         "localhost",
		OutputDir:          dir,
	}
}

func requireOpenSSL(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("openssl"); err != nil {
		t.Skip("openssl not available")
	}
}

func TestFormatForMetadata(t *testing.T) {
	pem := "-----BEGIN CERTIFICATE-----\nMIIC\nAQAB\n-----END CERTIFICATE-----\n"
	formatted := FormatForMetadata(pem)
	assert.Check(t, is.Equal("MIICAQAB", formatted))

	// Idempotent: formatting already-bare input changes nothing.
	assert.Check(t, is.Equal(formatted, FormatForMetadata(formatted)))
}

func TestFormatForMetadataStripsAllWhitespace(t *testing.T) {
	formatted := FormatForMetadata("  MIIC\r\n\tAQAB  ")
	assert.Check(t, is.Equal("MIICAQAB", formatted))
	assert.Check(t, !strings.ContainsAny(formatted, " \t\r\n"))
}

func TestLoadNotFound(t *testing.T) {
	s := NewStore(testConfig(t.TempDir()), nil)
	_, err := s.Load()
	assert.Check(t, errors.Is(err, ErrNotFound))
}

func TestLoadEmptyFiles(t *testing.T) {
	dir := t.TempDir()
	assert.NilError(t, os.WriteFile(filepath.Join(dir, "cert.pem"), []byte("  \n"), 0o644))
	assert.NilError(t, os.WriteFile(filepath.Join(dir, "key.pem"), []byte(""), 0o644))

	s := NewStore(testConfig(dir), nil)
	_, err := s.Load()
	assert.Check(t, errors.Is(err, ErrEmpty))
}

func TestLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	assert.NilError(t, os.WriteFile(filepath.Join(dir, "cert.pem"), []byte("CERT"), 0o644))
	assert.NilError(t, os.WriteFile(filepath.Join(dir, "key.pem"), []byte("KEY"), 0o644))

	s := NewStore(testConfig(dir), nil)
	cred, err := s.Load()
	assert.NilError(t, err)
	assert.Check(t, is.Equal("CERT", cred.CertificatePEM))
	assert.Check(t, is.Equal("KEY", cred.PrivateKeyPEM))
}

func TestGenerate(t *testing.T) {
	requireOpenSSL(t)

	dir := filepath.Join(t.TempDir(), "certs-data")
	s := NewStore(testConfig(dir), nil)
	cred, err := s.Generate(context.Background())
	assert.NilError(t, err)
	assert.Check(t, strings.Contains(cred.CertificatePEM, "BEGIN CERTIFICATE"))
	assert.Check(t, strings.Contains(cred.PrivateKeyPEM, "PRIVATE KEY"))

	// The generated pair must be usable for signing.
	keypair, err := cred.Keypair()
	assert.NilError(t, err)
	assert.Check(t, keypair.Leaf != nil)
	assert.Check(t, is.Equal("localhost", keypair.Leaf.Subject.CommonName))
}

func TestGenerateKeyMatchesCertificate(t *testing.T) {
	requireOpenSSL(t)

	dir := filepath.Join(t.TempDir(), "certs-data")
	s := NewStore(testConfig(dir), nil)
	cred, err := s.Generate(context.Background())
	assert.NilError(t, err)

	keypair, err := cred.Keypair()
	assert.NilError(t, err)

	// A signature made with the private key must verify against the
	// certificate's public key, or the written pair is mismatched.
	key, ok := keypair.PrivateKey.(*rsa.PrivateKey)
	assert.Assert(t, ok)
	digest := sha256.Sum256([]byte("signed assertion payload"))
	signature, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	assert.NilError(t, err)

	pub, ok := keypair.Leaf.PublicKey.(*rsa.PublicKey)
	assert.Assert(t, ok)
	assert.NilError(t, rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], signature))
}

func TestEnsureGeneratesOnce(t *testing.T) {
	requireOpenSSL(t)

	dir := filepath.Join(t.TempDir(), "certs-data")
	s := NewStore(testConfig(dir), nil)

	first, err := s.Ensure(context.Background())
	assert.NilError(t, err)

	// A second call must load the same pair rather than regenerate.
	second, err := s.Ensure(context.Background())
	assert.NilError(t, err)
	assert.Check(t, is.Equal(first.CertificatePEM, second.CertificatePEM))
	assert.Check(t, is.Equal(first.PrivateKeyPEM, second.PrivateKeyPEM))
}

func TestGenerateFailure(t *testing.T) {
	requireOpenSSL(t)

	// An empty common name makes the subject invalid for openssl.
	cfg := testConfig(filepath.Join(t.TempDir(), "certs-data"))
	cfg.CommonName = ""
	cfg.Country = "not-a-country-code"
	s := NewStore(cfg, nil)
	_, err := s.Generate(context.Background())
	assert.Check(t, errors.Is(err, ErrGenerationFailed))
}

func TestKeypairRejectsGarbage(t *testing.T) {
	cred := Credential{CertificatePEM: "garbage", PrivateKeyPEM: "garbage"}
	_, err := cred.Keypair()
	assert.Check(t, err != nil)
}
