// Package identity covers who is holding the device and who they are to the
// backend: the local presence gate guarding sensitive authorizations, and
// the principal extracted from the auth provider's ID token.
//
// # Architecture boundaries
//
// Credential verification happens at an external auth provider; this package
// only defines the collaborator interface and parses the ID token the
// provider issues. Presence verification is a device capability (biometrics,
// device PIN); this package defines the collaborator interface and the gate
// policy around it.
//
// # What this package must NOT do
//
//   - Store or compare passwords. The provider owns credentials.
//   - Touch the record store. A passed gate is a precondition the engine
//     consumes, not a state change.
package identity
