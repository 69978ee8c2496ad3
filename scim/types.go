// Package scim contains the SCIM 2.0 wire types shared by the served
// directory endpoints and the remote client, and the reconciler that
// mirrors the local directory into a remote SCIM service.
package scim

import "github.com/mockidp/mockidp/directory"

// SCIM 2.0 schema URNs (RFC 7643, RFC 7644).
const (
	UserSchema         = "urn:ietf:params:scim:schemas:core:2.0:User"
	ListResponseSchema = "urn:ietf:params:scim:api:messages:2.0:ListResponse"
	ErrorSchema        = "urn:ietf:params:scim:api:messages:2.0:Error"
)

// User is the SCIM representation of a directory user. When it
// describes a remote resource, ID is the remote-assigned identifier,
// which is distinct from the directory id.
type User struct {
	Schemas  []string   `json:"schemas"`
	ID       string     `json:"id,omitempty"`
	UserName string     `json:"userName"`
	Name     Name       `json:"name"`
	Emails   []Email    `json:"emails"`
	Active   bool       `json:"active"`
	Groups   []GroupRef `json:"groups"`
}

type Name struct {
	GivenName  string `json:"givenName"`
	FamilyName string `json:"familyName"`
}

type Email struct {
	Primary bool   `json:"primary"`
	Value   string `json:"value"`
	Type    string `json:"type"`
}

type GroupRef struct {
	Value   string `json:"value"`
	Display string `json:"display"`
}

// ListResponse is the SCIM list envelope.
type ListResponse struct {
	Schemas      []string `json:"schemas"`
	TotalResults int      `json:"totalResults"`
	StartIndex   int      `json:"startIndex,omitempty"`
	ItemsPerPage int      `json:"itemsPerPage,omitempty"`
	Resources    []User   `json:"Resources"`
}

// Error is the SCIM error envelope. Status carries the HTTP status
// code as a string per RFC 7644.
type Error struct {
	Schemas []string `json:"schemas"`
	Status  string   `json:"status,omitempty"`
	Detail  string   `json:"detail"`
}

// NewError returns an Error with the standard schema set.
func NewError(detail string) Error {
	return Error{Schemas: []string{ErrorSchema}, Detail: detail}
}

// MapUser converts a directory user into its SCIM resource form:
// userName is the email, the single email entry is the primary work
// address, and the role becomes the one group membership. The ID is
// left empty; the serving side fills in the directory id and the
// remote side assigns its own.
func MapUser(u directory.User) User {
	return User{
		Schemas:  []string{UserSchema},
		UserName: u.Email,
		Name: Name{
			GivenName:  u.FirstName,
			FamilyName: u.LastName,
		},
		Emails: []Email{{
			Primary: true,
			Value:   u.Email,
			Type:    "work",
		}},
		Active: true,
		Groups: []GroupRef{{
			Value:   string(u.Role),
			Display: string(u.Role),
		}},
	}
}

// HasEmail reports whether any of the user's email entries carries the
// given address.
func (u User) HasEmail(email string) bool {
	for _, e := range u.Emails {
		if e.Value == email {
			return true
		}
	}
	return false
}
