package identity

import (
	"errors"
	"fmt"
	"time"
)

// Role is the coarse permission level attached to an identity.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleEmployee
}

// Identity is a known person used for login matching and simulated detection.
// The JSON form is what gets persisted in the session slot.
type Identity struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       Role      `json:"role"`
	Department string    `json:"department"`
	EmployeeID string    `json:"employeeId"`
	IsActive   bool      `json:"isActive"`
	CreatedAt  time.Time `json:"createdAt"`
	Avatar     string    `json:"avatar,omitempty"`
}

// ErrDuplicateEmail is returned when two seeded identities share an email.
var ErrDuplicateEmail = errors.New("duplicate identity email")

// Validate checks the fields a stored identity must carry to be usable.
func (i Identity) Validate() error {
	if i.ID == "" {
		return errors.New("identity id required")
	}
	if i.Email == "" {
		return errors.New("identity email required")
	}
	if !i.Role.Valid() {
		return fmt.Errorf("unknown role %q", i.Role)
	}
	return nil
}

// Directory is the fixed known-identity set. It is immutable after creation.
type Directory struct {
	all     []Identity
	byEmail map[string]int
}

// NewDirectory builds a directory, rejecting duplicate emails.
func NewDirectory(ids ...Identity) (*Directory, error) {
	d := &Directory{
		all:     make([]Identity, 0, len(ids)),
		byEmail: make(map[string]int, len(ids)),
	}
	for _, id := range ids {
		if err := id.Validate(); err != nil {
			return nil, err
		}
		if _, ok := d.byEmail[id.Email]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateEmail, id.Email)
		}
		d.byEmail[id.Email] = len(d.all)
		d.all = append(d.all, id)
	}
	return d, nil
}

// Lookup finds an identity by exact, case-sensitive email.
func (d *Directory) Lookup(email string) (Identity, bool) {
	idx, ok := d.byEmail[email]
	if !ok {
		return Identity{}, false
	}
	return d.all[idx], true
}

// Len returns the number of known identities.
func (d *Directory) Len() int { return len(d.all) }

// At returns the i-th identity in seed order.
func (d *Directory) At(i int) Identity { return d.all[i] }

// All returns a copy of the known identities.
func (d *Directory) All() []Identity {
	out := make([]Identity, len(d.all))
	copy(out, d.all)
	return out
}
