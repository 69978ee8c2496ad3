package scim

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mockidp/mockidp/directory"
)

// SyncReport summarizes one reconciliation batch. Failed always equals
// len(Failures), and Failures preserves the iteration order over the
// input users.
type SyncReport struct {
	Success  int      `json:"success"`
	Failed   int      `json:"failed"`
	Failures []string `json:"failures"`
}

// Reconciler mirrors the local directory into a remote SCIM service
// with idempotent create-or-update logic.
type Reconciler struct {
	Client *Client
	Log    *logrus.Entry
}

// NewReconciler returns a Reconciler using client. A nil log falls back
// to the standard logger.
func NewReconciler(client *Client, log *logrus.Entry) *Reconciler {
	if log == nil {
		log = logrus.WithField("component", "scim-sync")
	}
	return &Reconciler{Client: client, Log: log}
}

// Reconcile ensures a remote resource exists with current attributes
// for each user. Users are processed sequentially and independently; a
// failure is recorded in the report and the batch continues. No call is
// retried — reconciliation is best-effort, not a durable queue.
//
// Cancellation is checked once per user; on cancellation the report
// reflects the work completed so far and ctx.Err() is returned.
func (r *Reconciler) Reconcile(ctx context.Context, users []directory.User) (*SyncReport, error) {
	report := &SyncReport{Failures: []string{}}
	r.Log.WithField("users", len(users)).Info("starting user sync")

	for _, user := range users {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := r.syncUser(ctx, user); err != nil {
			r.Log.WithField("email", user.Email).WithError(err).Warn("user sync failed")
			report.Failed++
			report.Failures = append(report.Failures, fmt.Sprintf("%s: %s", user.Email, err))
			continue
		}
		report.Success++
	}

	r.Log.WithFields(logrus.Fields{
		"success": report.Success,
		"failed":  report.Failed,
	}).Info("sync complete")
	return report, nil
}

// syncUser creates the remote resource for user, falling back to a full
// replacement when the remote reports it already exists.
func (r *Reconciler) syncUser(ctx context.Context, user directory.User) error {
	resource := MapUser(user)

	status, err := r.Client.CreateUser(ctx, resource)
	if err != nil {
		return err
	}
	switch {
	case status >= 200 && status <= 299:
		return nil
	case r.Client.conflict(status):
		// fall through to find-and-update
	default:
		return errors.Errorf("creation failed with status %d", status)
	}

	list, err := r.Client.ListUsers(ctx)
	if err != nil {
		return err
	}
	var existing *User
	for i := range list.Resources {
		if list.Resources[i].HasEmail(user.Email) {
			existing = &list.Resources[i]
			break
		}
	}
	if existing == nil {
		// The remote claimed a conflict but the listing has no matching
		// email. Inconsistent remote state; report it rather than guess.
		return errors.New("reported as existing but not found in listing")
	}

	if err := r.Client.ReplaceUser(ctx, existing.ID, resource); err != nil {
		return err
	}
	return nil
}
