package saml

import (
	"encoding/hex"
	"regexp"
	"strings"
	"time"

	xrv "github.com/mattermost/xml-roundtrip-validator"
)

// Correlation carries the fields extracted from an inbound AuthnRequest
// that the outgoing response must echo. It is derived per login attempt
// and never persisted.
type Correlation struct {
	RequestID    string
	Issuer       string
	IssueInstant time.Time
	Destination  string
}

// Only the request ID and issuer are load-bearing, so they are pulled
// with a minimal pattern match rather than a full XML parse.
var (
	requestIDPattern = regexp.MustCompile(`ID=['"]([^'"]+)['"]`)
	issuerPattern    = regexp.MustCompile(`<saml:Issuer[^>]*>(.*?)</saml:Issuer>`)
)

// ExtractCorrelation pulls the request ID and issuer out of the decoded
// AuthnRequest text. Input that is empty or fails XML round-trip
// validation yields a synthesized request ID instead of an error, so
// that unsolicited and malformed logins still produce an assertion.
func ExtractCorrelation(xmlText, destination string) Correlation {
	corr := Correlation{
		IssueInstant: TimeNow(),
		Destination:  destination,
	}

	if xmlText != "" && xrv.Validate(strings.NewReader(xmlText)) == nil {
		if m := requestIDPattern.FindStringSubmatch(xmlText); m != nil {
			corr.RequestID = m[1]
		}
		if m := issuerPattern.FindStringSubmatch(xmlText); m != nil {
			corr.Issuer = m[1]
		}
	}
	if corr.RequestID == "" {
		corr.RequestID = "_" + hex.EncodeToString(randomBytes(16))
	}
	return corr
}
