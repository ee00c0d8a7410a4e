package drop

import (
	"crypto/subtle"

	"dropserve/internal/auth"
)

// authorize evaluates read access to a drop. The two axes are checked
// in a fixed order:
//
//  1. Private drops without an authenticated reader fail as ErrNotFound,
//     so slug enumeration cannot reveal that a private drop exists.
//  2. Password-protected drops with a missing or wrong password fail as
//     ErrPasswordInvalid. The caller already knows the slug, so this
//     leaks nothing beyond "this drop is protected".
func (s *Service) authorize(d *Drop, password string, ident *auth.Identity) error {
	if d.IsPrivate && s.cfg.RequireAuth {
		if ident == nil || !ident.CanRead {
			return ErrNotFound
		}
	}

	if d.Protected() && s.cfg.PasswordProtection {
		if subtle.ConstantTimeCompare([]byte(d.Password), []byte(password)) != 1 {
			return ErrPasswordInvalid
		}
	}

	return nil
}

// requireWriter gates mutating operations on an authenticated identity
// with write capability.
func requireWriter(ident *auth.Identity) error {
	if ident == nil || !ident.CanWrite {
		return ErrAccessDenied
	}
	return nil
}
