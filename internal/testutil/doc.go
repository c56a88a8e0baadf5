// Package testutil contains builders and stubs shared by tests across
// packages: events, sessions and canned search providers.
// They are not intended for production usage.
package testutil
