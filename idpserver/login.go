package idpserver

import (
	"encoding/xml"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"time"

	"github.com/dchest/uniuri"
	jwt "github.com/form3tech-oss/jwt-go"
	"github.com/zenazn/goji/web"

	"github.com/mockidp/mockidp/directory"
	"github.com/mockidp/mockidp/saml"
)

const sessionCookieName = "session"

var loginFormTmpl = template.Must(template.New("login-form").Parse(`<html>
<head><title>Mock Identity Provider</title></head>
<body>
<h1>Sign in</h1>
<form method="post" action="/saml/login">
<select name="email">
{{range .Users}}<option value="{{.Email}}"{{if eq .Email $.Remembered}} selected{{end}}>{{.Email}} ({{.Role}})</option>
{{end}}</select>
<input type="hidden" name="SAMLRequest" value="{{.SAMLRequest}}" />
<input type="hidden" name="RelayState" value="{{.RelayState}}" />
<input type="submit" value="Log In" />
</form>
</body>
</html>`))

var responseFormTmpl = template.Must(template.New("saml-post-form").Parse(`<html>
<form method="post" action="{{.URL}}" id="SAMLResponseForm">
<input type="hidden" name="SAMLResponse" value="{{.SAMLResponse}}" />
<input type="hidden" name="RelayState" value="{{.RelayState}}" />
<input type="submit" value="Continue" />
</form>
<script>document.getElementById('SAMLResponseForm').submit();</script>
</html>`))

var redirectTmpl = template.Must(template.New("token-redirect").Parse(`<html>
<head><meta http-equiv="refresh" content="0;url={{.URL}}"></head>
<body><a href="{{.URL}}">Continue to service provider</a></body>
</html>`))

// HandleMetadata serves the IdP metadata document.
func (s *Server) HandleMetadata(w http.ResponseWriter, r *http.Request) {
	buf, err := xml.MarshalIndent(s.idp.Metadata(s.cred), "", "  ")
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/xml")
	w.Write([]byte(xml.Header)) //nolint:errcheck
	w.Write(buf)                //nolint:errcheck
}

// HandleLoginForm renders the login page, carrying any inbound
// SAMLRequest and RelayState through to the POST.
func (s *Server) HandleLoginForm(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Users       []directory.User
		Remembered  string
		SAMLRequest string
		RelayState  string
	}{
		Users:       s.dir.All(),
		Remembered:  s.rememberedEmail(r),
		SAMLRequest: r.URL.Query().Get("SAMLRequest"),
		RelayState:  r.URL.Query().Get("RelayState"),
	}
	if err := loginFormTmpl.Execute(w, data); err != nil {
		s.log.WithError(err).Error("cannot render login form")
	}
}

// HandleLogin resolves the chosen user and either issues a signed SAML
// response bound to the configured ACS endpoint, or, when no SAML
// request accompanied the login, falls back to a signed token redirect.
func (s *Server) HandleLogin(c web.C, w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.writeError(w, errInvalidRequest.WithMessage("Malformed login form").WithError(err))
		return
	}

	email := r.PostForm.Get("email")
	user, ok := s.dir.FindByEmail(email)
	if !ok {
		s.writeError(w, errUnknownUser)
		return
	}

	// Reuse the caller's session entry when it is still known, so
	// repeated logins do not grow the session map.
	sessionID := s.knownSessionID(r)
	if sessionID == "" {
		sessionID = uniuri.NewLen(48)
	}
	s.rememberEmail(sessionID, user.Email)
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
	})

	relayState := r.PostForm.Get("RelayState")
	if relayState == "" {
		relayState = fmt.Sprintf(`{ "companyId": "%s" }`, s.cfg.CompanyID)
	}

	samlRequest := r.PostForm.Get("SAMLRequest")
	if samlRequest == "" {
		s.sendTokenRedirect(w, user, relayState)
		return
	}

	xmlText, err := saml.DecodeRequest(samlRequest)
	if err != nil {
		// A garbled request must not block login; correlation is
		// synthesized below.
		s.log.WithError(err).Warn("cannot decode SAML request")
	}
	corr := saml.ExtractCorrelation(xmlText, s.cfg.SPACSURL)

	resp, err := s.idp.IssueResponse(user, s.cfg.SPACSURL, s.cfg.SPEntityID, relayState, corr, s.cred)
	if err != nil {
		s.writeError(w, errIssuanceFailed.WithError(err))
		return
	}
	s.sendResponse(w, resp)
}

// sendResponse renders the self-submitting POST form that delivers the
// signed response to the ACS endpoint.
func (s *Server) sendResponse(w http.ResponseWriter, resp *saml.LoginResponse) {
	data := struct {
		URL          string
		SAMLResponse string
		RelayState   string
	}{
		URL:          s.cfg.SPACSURL,
		SAMLResponse: saml.EncodeResponse(resp.XML),
		RelayState:   resp.RelayState,
	}
	if err := responseFormTmpl.Execute(w, data); err != nil {
		s.log.WithError(err).Error("cannot render response form")
	}
}

// sendTokenRedirect handles logins with no SAML request by redirecting
// to the service provider's login URL with a short-lived signed token
// describing the user.
func (s *Server) sendTokenRedirect(w http.ResponseWriter, user directory.User, relayState string) {
	claims := jwt.MapClaims{
		"email":     user.Email,
		"firstName": user.FirstName,
		"lastName":  user.LastName,
		"role":      string(user.Role),
		"iss":       "mock-idp",
		"exp":       saml.TimeNow().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.SessionSecret))
	if err != nil {
		s.writeError(w, errIssuanceFailed.WithError(err))
		return
	}

	redirectURL := s.cfg.SPLoginURL + "?token=" + url.QueryEscape(token) +
		"&RelayState=" + url.QueryEscape(relayState)
	if err := redirectTmpl.Execute(w, struct{ URL string }{URL: redirectURL}); err != nil {
		s.log.WithError(err).Error("cannot render redirect page")
	}
}
