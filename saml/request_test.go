package saml

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// testRandomReader yields a deterministic byte sequence so that
// generated identifiers are stable across runs.
type testRandomReader struct {
	count int
}

func (tr *testRandomReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(tr.count)
		tr.count++
	}
	return len(p), nil
}

func testSetup(t *testing.T) {
	t.Helper()
	origTimeNow := TimeNow
	origRandReader := RandReader
	TimeNow = func() time.Time {
		return time.Date(2027, 1, 15, 12, 0, 0, 0, time.UTC)
	}
	RandReader = &testRandomReader{}
	t.Cleanup(func() {
		TimeNow = origTimeNow
		RandReader = origRandReader
	})
}

func TestExtractCorrelation(t *testing.T) {
	testSetup(t)

	corr := ExtractCorrelation(testAuthnRequest, "https://sp.example.com/saml/acs")
	assert.Equal(t, "_abc123", corr.RequestID)
	assert.Equal(t, "urn:example:sp", corr.Issuer)
	assert.Equal(t, "https://sp.example.com/saml/acs", corr.Destination)
	assert.Equal(t, TimeNow(), corr.IssueInstant)
}

func TestExtractCorrelationSingleQuotes(t *testing.T) {
	testSetup(t)

	corr := ExtractCorrelation(`<samlp:AuthnRequest ID='_quoted' Version='2.0'></samlp:AuthnRequest>`, "")
	assert.Equal(t, "_quoted", corr.RequestID)
	assert.Equal(t, "", corr.Issuer)
}

func TestExtractCorrelationEmptyInput(t *testing.T) {
	testSetup(t)

	corr := ExtractCorrelation("", "https://sp.example.com/saml/acs")
	assert.Equal(t, "_000102030405060708090a0b0c0d0e0f", corr.RequestID)
	assert.Equal(t, "", corr.Issuer)
}

func TestExtractCorrelationMalformedXML(t *testing.T) {
	testSetup(t)

	// Input that fails XML round-trip validation is not pattern
	// matched at all; a fresh request ID is synthesized instead.
	corr := ExtractCorrelation(`<samlp:AuthnRequest ID="_evil"`, "")
	assert.NotEqual(t, "_evil", corr.RequestID)
	assert.True(t, len(corr.RequestID) > 1 && corr.RequestID[0] == '_')
}

func TestSynthesizedRequestIDsDiffer(t *testing.T) {
	origRandReader := RandReader
	RandReader = io.Reader(&testRandomReader{})
	defer func() { RandReader = origRandReader }()

	a := ExtractCorrelation("", "")
	b := ExtractCorrelation("", "")
	assert.NotEqual(t, a.RequestID, b.RequestID)
}
