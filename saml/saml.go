// Package saml implements the identity-provider side of a minimal SAML
// 2.0 login flow: decoding inbound AuthnRequests, issuing signed
// Response documents bound to a service provider's assertion consumer
// service, and producing the IdP metadata document.
//
// Only the pieces a mock provider needs are implemented. Request
// signature validation, encryption and non-POST response bindings are
// out of scope.
package saml

import (
	"crypto/rand"
	"time"
)

// SAML 2.0 namespace and format constants.
const (
	NamespaceAssertion = "urn:oasis:names:tc:SAML:2.0:assertion"
	NamespaceProtocol  = "urn:oasis:names:tc:SAML:2.0:protocol"
	NamespaceMetadata  = "urn:oasis:names:tc:SAML:2.0:metadata"

	NameIDFormatEmailAddress = "urn:oasis:names:tc:SAML:1.1:nameid-format:emailAddress"
	NameIDFormatEntity       = "urn:oasis:names:tc:SAML:2.0:nameid-format:entity"

	HTTPPostBinding = "urn:oasis:names:tc:SAML:2.0:bindings:HTTP-POST"

	StatusSuccess = "urn:oasis:names:tc:SAML:2.0:status:Success"

	AttrNameFormatBasic = "urn:oasis:names:tc:SAML:2.0:attrname-format:basic"
	AttrNameFormatURI   = "urn:oasis:names:tc:SAML:2.0:attrname-format:uri"

	SubjectConfirmationMethodBearer = "urn:oasis:names:tc:SAML:2.0:cm:bearer"

	AuthnContextPasswordProtectedTransport = "urn:oasis:names:tc:SAML:2.0:ac:classes:PasswordProtectedTransport"
)

// Claim URIs duplicated alongside the simple attribute names so that
// SAML stacks expecting either scheme can consume the assertion.
const (
	ClaimEmailAddress = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/emailaddress"
	ClaimGivenName    = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/givenname"
	ClaimSurname      = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/surname"
)

// AssertionValidity is the window between NotBefore and NotOnOrAfter on
// issued assertions. Assertions are consumed immediately after issuance,
// so the window is short.
const AssertionValidity = 5 * time.Minute

const timeFormat = "2006-01-02T15:04:05.999Z07:00"

// TimeNow is a function that returns the current time. The default
// value is time.Now, but it can be replaced for testing.
var TimeNow = func() time.Time { return time.Now().UTC() }

// RandReader is the io.Reader that produces cryptographically random
// bytes when they are needed by the package. The default value is
// rand.Reader, but it can be replaced for testing.
var RandReader = rand.Reader

func randomBytes(n int) []byte {
	rv := make([]byte, n)
	if _, err := RandReader.Read(rv); err != nil {
		panic(err)
	}
	return rv
}
