package saml

import (
	"bytes"
	"compress/flate"
	"encoding/base64"
	"io"

	"github.com/pkg/errors"
)

// ErrDecodeFailed indicates the inbound SAMLRequest parameter could not
// be base64-decoded. A decode failure never aborts login handling; the
// caller proceeds as if no request had been supplied.
var ErrDecodeFailed = errors.New("cannot decode SAML request")

// EncodeResponse encodes a response document for delivery through the
// HTTP-POST binding.
func EncodeResponse(xml string) string {
	return base64.StdEncoding.EncodeToString([]byte(xml))
}

// DecodeRequest turns the raw SAMLRequest parameter into XML text. The
// value is base64-decoded and then inflated with raw deflate; if
// inflation fails the decoded bytes are assumed to be uncompressed
// already, which is how the HTTP-POST binding delivers requests. On
// malformed base64 it returns an empty string and ErrDecodeFailed
// rather than failing the login.
func DecodeRequest(raw string) (string, error) {
	buf, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return "", errors.Wrap(ErrDecodeFailed, err.Error())
	}

	inflated, err := io.ReadAll(flate.NewReader(bytes.NewReader(buf)))
	if err != nil {
		// Not compressed. Treat the decoded bytes as XML text.
		return string(buf), nil
	}
	return string(inflated), nil
}
