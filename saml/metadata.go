package saml

import (
	"encoding/xml"

	"github.com/mockidp/mockidp/certs"
)

// EntityDescriptor is the root of the IdP metadata document.
//
// See http://docs.oasis-open.org/security/saml/v2.0/saml-metadata-2.0-os.pdf
type EntityDescriptor struct {
	XMLName          xml.Name          `xml:"urn:oasis:names:tc:SAML:2.0:metadata EntityDescriptor"`
	EntityID         string            `xml:"entityID,attr"`
	IDPSSODescriptor *IDPSSODescriptor `xml:"IDPSSODescriptor"`
}

type IDPSSODescriptor struct {
	XMLName                    xml.Name        `xml:"urn:oasis:names:tc:SAML:2.0:metadata IDPSSODescriptor"`
	ProtocolSupportEnumeration string          `xml:"protocolSupportEnumeration,attr"`
	KeyDescriptor              []KeyDescriptor `xml:"KeyDescriptor"`
	NameIDFormat               []string        `xml:"NameIDFormat"`
	SingleSignOnService        []Endpoint      `xml:"SingleSignOnService"`
	SingleLogoutService        []Endpoint      `xml:"SingleLogoutService"`
}

type KeyDescriptor struct {
	Use     string  `xml:"use,attr"`
	KeyInfo KeyInfo `xml:"http://www.w3.org/2000/09/xmldsig# KeyInfo"`
}

type KeyInfo struct {
	XMLName     xml.Name `xml:"http://www.w3.org/2000/09/xmldsig# KeyInfo"`
	Certificate string   `xml:"X509Data>X509Certificate"`
}

type Endpoint struct {
	Binding  string `xml:"Binding,attr"`
	Location string `xml:"Location,attr"`
}

// Metadata returns the IdP metadata document advertising the signing
// certificate and the SSO/SLO endpoints.
func (idp *IdentityProvider) Metadata(cred certs.Credential) *EntityDescriptor {
	return &EntityDescriptor{
		EntityID: idp.EntityID,
		IDPSSODescriptor: &IDPSSODescriptor{
			ProtocolSupportEnumeration: NamespaceProtocol,
			KeyDescriptor: []KeyDescriptor{
				{
					Use: "signing",
					KeyInfo: KeyInfo{
						Certificate: certs.FormatForMetadata(cred.CertificatePEM),
					},
				},
			},
			NameIDFormat: []string{NameIDFormatEmailAddress},
			SingleSignOnService: []Endpoint{
				{Binding: HTTPPostBinding, Location: idp.SSOURL},
			},
			SingleLogoutService: []Endpoint{
				{Binding: HTTPPostBinding, Location: idp.LogoutURL},
			},
		},
	}
}
