// Package session houses implementations of core.SessionStore. The
// interface and the Session type live in core so agents never depend on a
// concrete backend.
package session
