package scim

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mockidp/mockidp/directory"
)

// fakeRemote is an in-memory SCIM Users endpoint. Create responds with
// conflictStatus when a user with the same userName already exists, and
// failEmails forces a 500 on create for specific addresses.
type fakeRemote struct {
	mu             sync.Mutex
	nextID         int
	users          map[string]User // remote id -> resource
	conflictStatus int
	failEmails     map[string]bool
	listStatus     int
	omitFromList   map[string]bool

	creates  int
	replaces int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		nextID:         100,
		users:          map[string]User{},
		conflictStatus: http.StatusConflict,
		failEmails:     map[string]bool{},
		omitFromList:   map[string]bool{},
	}
}

func (f *fakeRemote) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/Users", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer remote-api-key", r.Header.Get("Authorization"))
		f.mu.Lock()
		defer f.mu.Unlock()

		switch r.Method {
		case http.MethodPost:
			f.creates++
			var u User
			require.NoError(t, json.NewDecoder(r.Body).Decode(&u))
			if f.failEmails[u.UserName] {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			for _, existing := range f.users {
				if existing.UserName == u.UserName {
					w.WriteHeader(f.conflictStatus)
					return
				}
			}
			u.ID = fmt.Sprintf("remote-%d", f.nextID)
			f.nextID++
			f.users[u.ID] = u
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(u)

		case http.MethodGet:
			if f.listStatus != 0 {
				w.WriteHeader(f.listStatus)
				return
			}
			list := ListResponse{Schemas: []string{ListResponseSchema}, Resources: []User{}}
			for _, u := range f.users {
				if f.omitFromList[u.UserName] {
					continue
				}
				list.Resources = append(list.Resources, u)
			}
			list.TotalResults = len(list.Resources)
			json.NewEncoder(w).Encode(list)
		}
	})
	mux.HandleFunc("/Users/", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		f.mu.Lock()
		defer f.mu.Unlock()

		f.replaces++
		id := strings.TrimPrefix(r.URL.Path, "/Users/")
		if _, ok := f.users[id]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var u User
		require.NoError(t, json.NewDecoder(r.Body).Decode(&u))
		u.ID = id
		f.users[id] = u
		json.NewEncoder(w).Encode(u)
	})
	return mux
}

func testReconciler(t *testing.T, f *fakeRemote) (*Reconciler, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	client := NewClient(srv.URL, "remote-api-key", 0)
	return NewReconciler(client, nil), srv
}

func TestReconcileCreatesAllUsers(t *testing.T) {
	f := newFakeRemote()
	r, _ := testReconciler(t, f)

	report, err := r.Reconcile(context.Background(), directory.Default().All())
	require.NoError(t, err)

	assert.Equal(t, 5, report.Success)
	assert.Equal(t, 0, report.Failed)
	assert.Empty(t, report.Failures)
	assert.Len(t, f.users, 5)
	assert.Equal(t, 0, f.replaces)
}

func TestReconcileIsIdempotent(t *testing.T) {
	f := newFakeRemote()
	r, _ := testReconciler(t, f)
	users := directory.Default().All()

	_, err := r.Reconcile(context.Background(), users)
	require.NoError(t, err)

	// The second run sees conflicts for every user and must update in
	// place without creating duplicates.
	report, err := r.Reconcile(context.Background(), users)
	require.NoError(t, err)

	assert.Equal(t, 5, report.Success)
	assert.Equal(t, 0, report.Failed)
	assert.Len(t, f.users, 5)
	assert.Equal(t, 5, f.replaces)
}

func TestReconcileRecordsFailuresAndContinues(t *testing.T) {
	f := newFakeRemote()
	f.failEmails["darwin+idp2@example.com"] = true
	r, _ := testReconciler(t, f)

	report, err := r.Reconcile(context.Background(), directory.Default().All())
	require.NoError(t, err)

	assert.Equal(t, 4, report.Success)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Failures, 1)
	assert.Contains(t, report.Failures[0], "darwin+idp2@example.com")
	assert.Contains(t, report.Failures[0], "500")
}

func TestReconcileConflictWithoutMatch(t *testing.T) {
	f := newFakeRemote()
	r, _ := testReconciler(t, f)
	users := directory.Default().All()[:1]

	_, err := r.Reconcile(context.Background(), users)
	require.NoError(t, err)

	// The remote now claims the user exists but hides it from the
	// listing. That inconsistency must surface as a failure.
	f.omitFromList[users[0].Email] = true
	report, err := r.Reconcile(context.Background(), users)
	require.NoError(t, err)

	assert.Equal(t, 0, report.Success)
	assert.Equal(t, 1, report.Failed)
	assert.Contains(t, report.Failures[0], "not found in listing")
}

func TestReconcileListFailure(t *testing.T) {
	f := newFakeRemote()
	r, _ := testReconciler(t, f)
	users := directory.Default().All()[:1]

	_, err := r.Reconcile(context.Background(), users)
	require.NoError(t, err)

	f.listStatus = http.StatusBadGateway
	report, err := r.Reconcile(context.Background(), users)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Contains(t, report.Failures[0], "listing failed")
}

func TestReconcileCancelled(t *testing.T) {
	f := newFakeRemote()
	r, _ := testReconciler(t, f)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := r.Reconcile(ctx, directory.Default().All())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, report.Success)
	assert.Equal(t, 0, f.creates)
}

func TestReconcileCustomConflictPredicate(t *testing.T) {
	f := newFakeRemote()
	// Some remotes answer duplicate creates with 400 instead of 409.
	f.conflictStatus = http.StatusBadRequest
	r, _ := testReconciler(t, f)
	r.Client.IsConflict = func(status int) bool { return status == http.StatusBadRequest }
	users := directory.Default().All()

	_, err := r.Reconcile(context.Background(), users)
	require.NoError(t, err)
	report, err := r.Reconcile(context.Background(), users)
	require.NoError(t, err)

	assert.Equal(t, 5, report.Success)
	assert.Equal(t, 5, f.replaces)
	assert.Len(t, f.users, 5)
}

func TestReconcileDefaultConflictIs409Only(t *testing.T) {
	f := newFakeRemote()
	f.conflictStatus = http.StatusBadRequest
	r, _ := testReconciler(t, f)
	users := directory.Default().All()[:1]

	_, err := r.Reconcile(context.Background(), users)
	require.NoError(t, err)
	report, err := r.Reconcile(context.Background(), users)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Failed)
	assert.Contains(t, report.Failures[0], "status 400")
}

func TestMapUser(t *testing.T) {
	u := MapUser(directory.User{
		ID:        "3",
		Email:     "darwin+idp3@example.com",
		FirstName: "Darwin",
		LastName:  "Three",
		Role:      directory.RoleReviewer,
	})

	assert.Equal(t, []string{UserSchema}, u.Schemas)
	assert.Equal(t, "", u.ID)
	assert.Equal(t, "darwin+idp3@example.com", u.UserName)
	assert.Equal(t, "Darwin", u.Name.GivenName)
	assert.Equal(t, "Three", u.Name.FamilyName)
	require.Len(t, u.Emails, 1)
	assert.Equal(t, Email{Primary: true, Value: "darwin+idp3@example.com", Type: "work"}, u.Emails[0])
	assert.True(t, u.Active)
	assert.Equal(t, []GroupRef{{Value: "REVIEWER", Display: "REVIEWER"}}, u.Groups)

	assert.True(t, u.HasEmail("darwin+idp3@example.com"))
	assert.False(t, u.HasEmail("other@example.com"))
}
