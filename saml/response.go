package saml

import (
	"encoding/hex"

	"github.com/beevik/etree"
	"github.com/pkg/errors"
	dsig "github.com/russellhaering/goxmldsig"

	"github.com/mockidp/mockidp/certs"
	"github.com/mockidp/mockidp/directory"
)

// ErrSigningFailed indicates the credential's key material could not be
// used to sign the response. This is fatal for the operation and is
// never retried.
var ErrSigningFailed = errors.New("cannot sign SAML response")

// The Canonicalizer prefix list MUST be empty. Various implementations
// do not support non-empty prefix lists in XML C14N.
const canonicalizerPrefixList = ""

// IdentityProvider issues signed SAML Response documents. It is
// stateless across calls; all per-call state lives on the stack, so
// concurrent issuance is safe as long as the credential is not mutated.
type IdentityProvider struct {
	// EntityID identifies this IdP in Issuer elements and metadata.
	EntityID string
	// SSOURL and LogoutURL are advertised in metadata.
	SSOURL    string
	LogoutURL string
	// SignResponse controls whether the enclosing Response element is
	// signed in addition to the Assertion.
	SignResponse bool
}

// LoginResponse is the signed document ready for delivery through the
// HTTP-POST binding, together with the relay state that must be echoed
// unchanged.
type LoginResponse struct {
	XML        string
	RelayState string
}

// IssueResponse builds and signs a Response for user, bound to the
// service provider's ACS endpoint. The correlation's request ID becomes
// InResponseTo; when it is empty the attribute is omitted, which is the
// IdP-initiated case.
func (idp *IdentityProvider) IssueResponse(user directory.User, acsURL, spEntityID, relayState string, corr Correlation, cred certs.Credential) (*LoginResponse, error) {
	switch {
	case user.Email == "":
		return nil, errors.New("user has no email")
	case acsURL == "":
		return nil, errors.New("no assertion consumer service URL")
	case spEntityID == "":
		return nil, errors.New("no service provider entity ID")
	case idp.EntityID == "":
		return nil, errors.New("identity provider has no entity ID")
	}

	keypair, err := cred.Keypair()
	if err != nil {
		return nil, errors.Wrap(ErrSigningFailed, err.Error())
	}
	signingContext := dsig.NewDefaultSigningContext(dsig.TLSCertKeyStore(keypair))
	signingContext.Canonicalizer = dsig.MakeC14N10ExclusiveCanonicalizerWithPrefixList(canonicalizerPrefixList)

	now := TimeNow()

	assertionEl := idp.makeAssertion(user, acsURL, spEntityID, corr)
	signedAssertionEl, err := signingContext.SignEnveloped(assertionEl)
	if err != nil {
		return nil, errors.Wrap(ErrSigningFailed, err.Error())
	}
	// SignEnveloped appends the Signature as the last child; schema
	// order wants it directly after the Issuer. The enveloped-signature
	// transform makes the move signature-neutral.
	moveSignatureAfterIssuer(signedAssertionEl)

	responseEl := etree.NewElement("samlp:Response")
	responseEl.CreateAttr("xmlns:samlp", NamespaceProtocol)
	responseEl.CreateAttr("xmlns:saml", NamespaceAssertion)
	responseEl.CreateAttr("ID", "id-"+hex.EncodeToString(randomBytes(16)))
	responseEl.CreateAttr("Version", "2.0")
	responseEl.CreateAttr("IssueInstant", now.Format(timeFormat))
	responseEl.CreateAttr("Destination", acsURL)
	if corr.RequestID != "" {
		responseEl.CreateAttr("InResponseTo", corr.RequestID)
	}

	issuerEl := responseEl.CreateElement("saml:Issuer")
	issuerEl.CreateAttr("Format", NameIDFormatEntity)
	issuerEl.SetText(idp.EntityID)

	statusEl := responseEl.CreateElement("samlp:Status")
	statusEl.CreateElement("samlp:StatusCode").CreateAttr("Value", StatusSuccess)

	responseEl.AddChild(signedAssertionEl)

	if idp.SignResponse {
		responseEl, err = signingContext.SignEnveloped(responseEl)
		if err != nil {
			return nil, errors.Wrap(ErrSigningFailed, err.Error())
		}
		moveSignatureAfterIssuer(responseEl)
	}

	doc := etree.NewDocument()
	doc.SetRoot(responseEl)
	xml, err := doc.WriteToString()
	if err != nil {
		return nil, errors.Wrap(err, "serializing response")
	}

	return &LoginResponse{XML: xml, RelayState: relayState}, nil
}

// makeAssertion builds the unsigned assertion element for user.
func (idp *IdentityProvider) makeAssertion(user directory.User, acsURL, spEntityID string, corr Correlation) *etree.Element {
	now := TimeNow()
	notOnOrAfter := now.Add(AssertionValidity).Format(timeFormat)

	assertionEl := etree.NewElement("saml:Assertion")
	assertionEl.CreateAttr("xmlns:saml", NamespaceAssertion)
	assertionEl.CreateAttr("ID", "_"+hex.EncodeToString(randomBytes(32)))
	assertionEl.CreateAttr("Version", "2.0")
	assertionEl.CreateAttr("IssueInstant", now.Format(timeFormat))

	issuerEl := assertionEl.CreateElement("saml:Issuer")
	issuerEl.CreateAttr("Format", NameIDFormatEntity)
	issuerEl.SetText(idp.EntityID)

	subjectEl := assertionEl.CreateElement("saml:Subject")
	nameIDEl := subjectEl.CreateElement("saml:NameID")
	nameIDEl.CreateAttr("Format", NameIDFormatEmailAddress)
	nameIDEl.SetText(user.Email)
	confirmationEl := subjectEl.CreateElement("saml:SubjectConfirmation")
	confirmationEl.CreateAttr("Method", SubjectConfirmationMethodBearer)
	confirmationDataEl := confirmationEl.CreateElement("saml:SubjectConfirmationData")
	if corr.RequestID != "" {
		confirmationDataEl.CreateAttr("InResponseTo", corr.RequestID)
	}
	confirmationDataEl.CreateAttr("NotOnOrAfter", notOnOrAfter)
	confirmationDataEl.CreateAttr("Recipient", acsURL)

	conditionsEl := assertionEl.CreateElement("saml:Conditions")
	conditionsEl.CreateAttr("NotBefore", now.Format(timeFormat))
	conditionsEl.CreateAttr("NotOnOrAfter", notOnOrAfter)
	audienceEl := conditionsEl.CreateElement("saml:AudienceRestriction").CreateElement("saml:Audience")
	audienceEl.SetText(spEntityID)

	authnStatementEl := assertionEl.CreateElement("saml:AuthnStatement")
	authnStatementEl.CreateAttr("AuthnInstant", now.Format(timeFormat))
	authnStatementEl.CreateAttr("SessionIndex", "_"+hex.EncodeToString(randomBytes(16)))
	authnStatementEl.CreateElement("saml:AuthnContext").
		CreateElement("saml:AuthnContextClassRef").
		SetText(AuthnContextPasswordProtectedTransport)

	attributeStatementEl := assertionEl.CreateElement("saml:AttributeStatement")
	// Simple keys and schemas.xmlsoap.org claim URIs are emitted side
	// by side so that either naming scheme satisfies the consumer.
	addAttribute(attributeStatementEl, "email", AttrNameFormatBasic, user.Email)
	addAttribute(attributeStatementEl, "firstName", AttrNameFormatBasic, user.FirstName)
	addAttribute(attributeStatementEl, "lastName", AttrNameFormatBasic, user.LastName)
	addAttribute(attributeStatementEl, "role", AttrNameFormatBasic, string(user.Role))
	addAttribute(attributeStatementEl, ClaimEmailAddress, AttrNameFormatURI, user.Email)
	addAttribute(attributeStatementEl, ClaimGivenName, AttrNameFormatURI, user.FirstName)
	addAttribute(attributeStatementEl, ClaimSurname, AttrNameFormatURI, user.LastName)

	return assertionEl
}

func addAttribute(parent *etree.Element, name, nameFormat, value string) {
	attrEl := parent.CreateElement("saml:Attribute")
	attrEl.CreateAttr("Name", name)
	attrEl.CreateAttr("NameFormat", nameFormat)
	valueEl := attrEl.CreateElement("saml:AttributeValue")
	valueEl.SetText(value)
}

func moveSignatureAfterIssuer(el *etree.Element) {
	children := el.ChildElements()
	if len(children) < 2 {
		return
	}
	sigEl := children[len(children)-1]
	el.RemoveChild(sigEl)
	el.InsertChildAt(1, sigEl)
}
