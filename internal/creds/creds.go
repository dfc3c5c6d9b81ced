// Package creds stores router login credentials encrypted at rest.
package creds

// Profile is a named set of HTTP basic-auth credentials for a router.
// DumaOS firmwares that require authentication use the admin password set
// in the router UI.
type Profile struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Summary is a safe representation of a profile without the password.
type Summary struct {
	Name     string `json:"name"`
	Username string `json:"username,omitempty"`
}

// Summarize returns a Summary without sensitive fields.
func (p *Profile) Summarize() Summary {
	return Summary{Name: p.Name, Username: p.Username}
}

// Provider is the interface for credential storage backends.
type Provider interface {
	List() ([]Summary, error)
	Get(name string) (*Profile, error)
	Add(p Profile) error
	Update(name string, p Profile) error
	Remove(name string) error
}
