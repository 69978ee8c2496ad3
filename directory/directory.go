// Package directory holds the fixed user set the identity provider
// asserts identities for and mirrors into the remote SCIM service.
package directory

// Role is the coarse permission level a user carries into the service
// provider. The remote service maps it onto a group of the same name.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleSupervisor Role = "SUPERVISOR"
	RoleReviewer   Role = "REVIEWER"
	RoleLabeler    Role = "LABELER"
)

// User is a directory entry. The set is read-only for the life of the
// process; both SAML subject attributes and SCIM resource attributes
// are derived from it.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      Role   `json:"role"`
}

// Directory is an immutable collection of users keyed by id and email.
type Directory struct {
	users []User
}

// New returns a Directory over the given users. The slice is copied so
// later mutation by the caller cannot affect the directory.
func New(users []User) *Directory {
	d := &Directory{users: make([]User, len(users))}
	copy(d.users, users)
	return d
}

// Default returns the built-in five-user directory.
func Default() *Directory {
	return New([]User{
		{ID: "1", Email: "darwin+idp1@example.com", FirstName: "Darwin", LastName: "One", Role: RoleAdmin},
		{ID: "2", Email: "darwin+idp2@example.com", FirstName: "Darwin", LastName: "Two", Role: RoleSupervisor},
		{ID: "3", Email: "darwin+idp3@example.com", FirstName: "Darwin", LastName: "Three", Role: RoleReviewer},
		{ID: "4", Email: "darwin+idp4@example.com", FirstName: "Darwin", LastName: "Four", Role: RoleLabeler},
		{ID: "5", Email: "darwin+idp5@example.com", FirstName: "Darwin", LastName: "Five", Role: RoleLabeler},
	})
}

// All returns a copy of every user in directory order.
func (d *Directory) All() []User {
	rv := make([]User, len(d.users))
	copy(rv, d.users)
	return rv
}

// FindByEmail returns the user with exactly the given email.
// Matching is case-sensitive.
func (d *Directory) FindByEmail(email string) (User, bool) {
	for _, u := range d.users {
		if u.Email == email {
			return u, true
		}
	}
	return User{}, false
}

// FindByID returns the user with the given directory id.
func (d *Directory) FindByID(id string) (User, bool) {
	for _, u := range d.users {
		if u.ID == id {
			return u, true
		}
	}
	return User{}, false
}
