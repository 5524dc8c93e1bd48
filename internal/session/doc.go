// Package session owns the authenticated-session state machine.
//
// A Manager moves between SignedOut, Authenticating and SignedIn. Every
// transition runs under one operation lock, so two concurrent sign-ins can
// never interleave; readers load an immutable State atomically and never see
// a half-built session.
//
// Restoration at startup prefers a persisted snapshot, revalidated with an
// authenticated user lookup. Without a snapshot it falls back to the user id
// carried in the credential itself. That id is unverified and only decides
// which user to look up; the backend has the final word. Any restoration
// failure is converted into a clean sign-out rather than returned.
package session
