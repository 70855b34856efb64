// Package ir provides the canonical value encoding behind term identity.
//
// Every term in a pipeline is named by a content hash of its kind, its
// ordered input IDs and its parameters. The hash is taken over RFC 8785
// canonical JSON so that two structurally identical terms always receive the
// same ID, across processes and restarts.
//
// Key constraints:
//   - NO JSON floats; float parameters are carried as decimal strings (Float)
//   - no null
//   - strings are NFC normalized at the serialization boundary
//
// ir imports nothing internal.
package ir
