// Command idp runs the mock identity provider: it ensures a signing
// certificate exists, then serves the SAML and SCIM endpoints.
package main

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/mockidp/mockidp/certs"
	"github.com/mockidp/mockidp/config"
	"github.com/mockidp/mockidp/directory"
	"github.com/mockidp/mockidp/idpserver"
	"github.com/mockidp/mockidp/scim"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log := logrus.WithField("app", "mock-idp")

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("cannot load configuration")
	}

	store := certs.NewStore(cfg.CertConfig(), log.WithField("component", "certs"))
	cred, err := store.Ensure(context.Background())
	if err != nil {
		log.WithError(err).Fatal("cannot obtain signing certificate")
	}

	var reconciler *scim.Reconciler
	if cfg.SCIMRemoteBaseURL != "" && cfg.SCIMRemoteAPIKey != "" {
		client := scim.NewClient(cfg.SCIMRemoteBaseURL, cfg.SCIMRemoteAPIKey, cfg.SCIMTimeout)
		reconciler = scim.NewReconciler(client, log.WithField("component", "scim"))
	} else {
		log.Info("no remote SCIM service configured, sync endpoints disabled")
	}

	server, err := idpserver.New(idpserver.Options{
		Config:     cfg,
		Credential: cred,
		Directory:  directory.Default(),
		Reconciler: reconciler,
		Logger:     log.WithField("component", "idpserver"),
	})
	if err != nil {
		log.WithError(err).Fatal("cannot build server")
	}

	log.WithFields(logrus.Fields{
		"addr":     cfg.Addr,
		"entityId": cfg.IDPEntityID,
	}).Info("listening")
	if err := http.ListenAndServe(cfg.Addr, server); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
