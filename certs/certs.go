// Package certs manages the self-signed keypair the identity provider
// uses to sign assertions and to advertise in its metadata. Key
// material lives as a pair of PEM files on disk; when they are missing
// or unreadable a new pair is generated with the openssl toolchain.
package certs

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	// ErrNotFound indicates one or both PEM files are absent.
	ErrNotFound = errors.New("certificate files not found")
	// ErrEmpty indicates a PEM file exists but has no content.
	ErrEmpty = errors.New("certificate or private key file is empty")
	// ErrGenerationFailed indicates the openssl invocation did not succeed.
	ErrGenerationFailed = errors.New("certificate generation failed")
	// ErrUnavailable indicates key material could not be loaded even
	// after a fresh generation attempt.
	ErrUnavailable = errors.New("certificates unavailable after generation")
)

const (
	certFileName = "cert.pem"
	keyFileName  = "key.pem"

	// validityDays is the -days argument passed to openssl. The mock
	// provider never rotates its certificate, so the window is long.
	validityDays = "7300"
)

// Config describes the certificate subject and where the PEM files live.
type Config struct {
	Country            string
	State              string
	Locality           string
	Organization       string
	OrganizationalUnit string
	CommonName         string
	Email              string
	OutputDir          string
}

// Store loads and generates signing credentials at a configured path.
type Store struct {
	cfg Config
	log *logrus.Entry
}

// NewStore returns a Store for cfg. A nil log falls back to the
// standard logger.
func NewStore(cfg Config, log *logrus.Entry) *Store {
	if log == nil {
		log = logrus.WithField("component", "certs")
	}
	return &Store{cfg: cfg, log: log}
}

func (s *Store) certPath() string { return filepath.Join(s.cfg.OutputDir, certFileName) }
func (s *Store) keyPath() string  { return filepath.Join(s.cfg.OutputDir, keyFileName) }

// Load reads the credential from disk. It returns ErrNotFound when
// either file is absent and ErrEmpty when either file has no content.
func (s *Store) Load() (Credential, error) {
	certPEM, err := os.ReadFile(s.certPath())
	if err != nil {
		if os.IsNotExist(err) {
			return Credential{}, ErrNotFound
		}
		return Credential{}, errors.Wrap(err, "reading certificate")
	}
	keyPEM, err := os.ReadFile(s.keyPath())
	if err != nil {
		if os.IsNotExist(err) {
			return Credential{}, ErrNotFound
		}
		return Credential{}, errors.Wrap(err, "reading private key")
	}
	if len(bytes.TrimSpace(certPEM)) == 0 || len(bytes.TrimSpace(keyPEM)) == 0 {
		return Credential{}, ErrEmpty
	}
	return Credential{CertificatePEM: string(certPEM), PrivateKeyPEM: string(keyPEM)}, nil
}

// Generate creates a fresh self-signed certificate and RSA-2048 key by
// invoking openssl, writes both PEM files to the output directory
// (creating it if needed) and returns the loaded credential. A non-zero
// openssl exit surfaces as ErrGenerationFailed.
func (s *Store) Generate(ctx context.Context) (Credential, error) {
	if err := os.MkdirAll(s.cfg.OutputDir, 0o755); err != nil {
		return Credential{}, errors.Wrap(err, "creating certificate directory")
	}

	subject := "/CN=" + s.cfg.CommonName +
		"/C=" + s.cfg.Country +
		"/ST=" + s.cfg.State +
		"/L=" + s.cfg.Locality +
		"/O=" + s.cfg.Organization +
		"/OU=" + s.cfg.OrganizationalUnit
	if s.cfg.Email != "" {
		subject += "/emailAddress=" + s.cfg.Email
	}

	cmd := exec.CommandContext(ctx, "openssl", "req", "-x509", "-new",
		"-newkey", "rsa:2048",
		"-keyout", s.keyPath(),
		"-out", s.certPath(),
		"-days", validityDays,
		"-nodes",
		"-subj", subject)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	s.log.WithField("subject", subject).Info("generating signing certificate")
	if err := cmd.Run(); err != nil {
		return Credential{}, errors.Wrapf(ErrGenerationFailed, "%v: %s", err, strings.TrimSpace(stderr.String()))
	}
	s.logCertificateInfo(ctx)

	return s.Load()
}

// Ensure returns the credential from disk, generating a new pair first
// if loading fails for any reason. If the post-generation load still
// fails the error is ErrUnavailable.
func (s *Store) Ensure(ctx context.Context) (Credential, error) {
	cred, err := s.Load()
	if err == nil {
		return cred, nil
	}
	s.log.WithError(err).Info("cannot load certificates, generating a new pair")

	if _, err := s.Generate(ctx); err != nil {
		return Credential{}, err
	}
	cred, err = s.Load()
	if err != nil {
		return Credential{}, errors.Wrap(ErrUnavailable, err.Error())
	}
	return cred, nil
}

// logCertificateInfo shells out to openssl to describe the freshly
// written certificate. Failures here are logged and otherwise ignored.
func (s *Store) logCertificateInfo(ctx context.Context) {
	out, err := exec.CommandContext(ctx, "openssl", "x509",
		"-in", s.certPath(), "-noout", "-subject", "-issuer", "-dates").Output()
	if err != nil {
		s.log.WithError(err).Debug("cannot read certificate information")
		return
	}
	s.log.WithField("certificate", strings.TrimSpace(string(out))).Info("certificate generated")
}
