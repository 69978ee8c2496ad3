// Package idpserver ties the certificate store, the SAML issuer, the
// directory and the SCIM reconciler together behind one HTTP server.
package idpserver

import (
	"net/http"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/zenazn/goji/web"

	"github.com/mockidp/mockidp/certs"
	"github.com/mockidp/mockidp/config"
	"github.com/mockidp/mockidp/directory"
	"github.com/mockidp/mockidp/saml"
	"github.com/mockidp/mockidp/scim"
)

// Options are the parameters for New.
type Options struct {
	Config     *config.Config
	Credential certs.Credential
	Directory  *directory.Directory
	// Reconciler may be nil when no remote SCIM service is configured;
	// the sync endpoints then report that sync is unavailable.
	Reconciler *scim.Reconciler
	Logger     *logrus.Entry
}

// Server is an http.Handler exposing the SAML endpoints, the served
// SCIM directory and the sync triggers.
type Server struct {
	http.Handler

	cfg  *config.Config
	cred certs.Credential
	idp  *saml.IdentityProvider
	dir  *directory.Directory
	sync *scim.Reconciler
	log  *logrus.Entry

	sessionMu sync.RWMutex
	sessions  map[string]string // cookie value -> remembered email
}

// New assembles a Server from opts.
func New(opts Options) (*Server, error) {
	log := opts.Logger
	if log == nil {
		log = logrus.WithField("component", "idpserver")
	}

	s := &Server{
		cfg:  opts.Config,
		cred: opts.Credential,
		idp: &saml.IdentityProvider{
			EntityID:     opts.Config.IDPEntityID,
			SSOURL:       opts.Config.IDPLoginURL,
			LogoutURL:    opts.Config.IDPLogoutURL,
			SignResponse: opts.Config.SignResponse,
		},
		dir:      opts.Directory,
		sync:     opts.Reconciler,
		log:      log,
		sessions: map[string]string{},
	}

	mux := web.New()
	mux.Get("/", s.HandleHome)
	mux.Get("/saml/metadata", s.HandleMetadata)
	mux.Get("/saml/login", s.HandleLoginForm)
	mux.Post("/saml/login", s.HandleLogin)

	mux.Post("/scim/v2/sync", s.requireSCIMToken(s.HandleSync))
	mux.Get("/scim/v2/Users", s.requireSCIMToken(s.HandleListUsers))
	mux.Post("/scim/v2/Users/.search", s.requireSCIMToken(s.HandleSearchUsers))
	mux.Get("/scim/v2/Users/:id", s.requireSCIMToken(s.HandleGetUser))

	mux.Post("/admin/sync-users", s.HandleSync)

	s.Handler = mux
	return s, nil
}

// rememberEmail stores the chosen email under a fresh session id and
// returns the cookie value.
func (s *Server) rememberEmail(id, email string) {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()
	s.sessions[id] = email
}

// knownSessionID returns the request's session cookie value if it maps
// to a remembered session, otherwise "".
func (s *Server) knownSessionID(r *http.Request) string {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	s.sessionMu.RLock()
	defer s.sessionMu.RUnlock()
	if _, ok := s.sessions[cookie.Value]; !ok {
		return ""
	}
	return cookie.Value
}

func (s *Server) rememberedEmail(r *http.Request) string {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	s.sessionMu.RLock()
	defer s.sessionMu.RUnlock()
	return s.sessions[cookie.Value]
}
