package saml

import (
	"bytes"
	"compress/flate"
	"encoding/base64"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAuthnRequest = `<samlp:AuthnRequest xmlns:samlp="urn:oasis:names:tc:SAML:2.0:protocol" ID="_abc123" Version="2.0"><saml:Issuer xmlns:saml="urn:oasis:names:tc:SAML:2.0:assertion">urn:example:sp</saml:Issuer></samlp:AuthnRequest>`

func deflateEncode(t *testing.T, s string) string {
	t.Helper()
	var buf bytes.Buffer
	fw, err := flate.NewWriter(&buf, flate.DefaultCompression)
	require.NoError(t, err)
	_, err = fw.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, fw.Close())
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestDecodeRequestDeflated(t *testing.T) {
	xmlText, err := DecodeRequest(deflateEncode(t, testAuthnRequest))
	require.NoError(t, err)
	assert.Equal(t, testAuthnRequest, xmlText)
}

func TestDecodeRequestPlainBase64(t *testing.T) {
	// Some service providers post the request base64-encoded without
	// deflate compression.
	raw := base64.StdEncoding.EncodeToString([]byte(testAuthnRequest))
	xmlText, err := DecodeRequest(raw)
	require.NoError(t, err)
	assert.Equal(t, testAuthnRequest, xmlText)
}

func TestDecodeRequestInvalidBase64(t *testing.T) {
	xmlText, err := DecodeRequest("!!! not base64 !!!")
	assert.Equal(t, "", xmlText)
	assert.True(t, errors.Is(err, ErrDecodeFailed))
}

func TestEncodeResponse(t *testing.T) {
	encoded := EncodeResponse("<samlp:Response/>")
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	assert.Equal(t, "<samlp:Response/>", string(decoded))
}
