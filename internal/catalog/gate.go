package catalog

import "github.com/auditportal/auditportal/internal/session"

// IdentityProvider supplies the signed-in user, if any.
type IdentityProvider interface {
	CurrentUser() (session.Identity, bool)
}

// Gate decides whether the View action is enabled for a file. It is
// advisory: the download URL endpoint enforces access on its own.
type Gate struct {
	identity IdentityProvider
}

// NewGate creates a gate bound to an identity source. A nil source
// disables every file.
func NewGate(p IdentityProvider) *Gate {
	return &Gate{identity: p}
}

// CanView reports whether the current user owns f. Usernames are
// compared case-sensitively.
func (g *Gate) CanView(f *File) bool {
	if g == nil || g.identity == nil || f == nil {
		return false
	}
	id, ok := g.identity.CurrentUser()
	if !ok || id.Username == "" {
		return false
	}
	return id.Username == f.Username
}
