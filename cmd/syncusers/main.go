// Command syncusers pushes the built-in directory to the remote SCIM
// service once and prints the resulting report.
package main

import (
	"context"
	"os"

	"github.com/kr/pretty"
	"github.com/sirupsen/logrus"

	"github.com/mockidp/mockidp/config"
	"github.com/mockidp/mockidp/directory"
	"github.com/mockidp/mockidp/scim"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log := logrus.WithField("app", "syncusers")

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("cannot load configuration")
	}
	if cfg.SCIMRemoteBaseURL == "" || cfg.SCIMRemoteAPIKey == "" {
		log.Fatal("SCIM_REMOTE_BASE_URL and SCIM_REMOTE_API_KEY must be set")
	}

	client := scim.NewClient(cfg.SCIMRemoteBaseURL, cfg.SCIMRemoteAPIKey, cfg.SCIMTimeout)
	reconciler := scim.NewReconciler(client, log.WithField("component", "scim"))

	report, err := reconciler.Reconcile(context.Background(), directory.Default().All())
	if report != nil {
		pretty.Println(report)
	}
	if err != nil {
		log.WithError(err).Fatal("sync aborted")
	}
	if report.Failed > 0 {
		os.Exit(1)
	}
}
