// Package core is a reusable backend substrate: a generic CRUD engine over
// Bun repositories plus an authentication subsystem.
//
// CRUD engine:
//   - Repository wraps a bun.IDB with default select criteria and typed
//     handlers, and CrudService layers the standard operations on top:
//     filtered reads, create with server-side identity and timestamps, and
//     merge-based updates.
//   - Schema describes which payload fields an update may touch. Merge walks
//     the field descriptors, applies the partial/full update skip rules, and
//     reports how many fields actually changed so no-op writes never hit the
//     store.
//
// Authentication:
//   - Authenticator owns credential verification, session reuse, and account
//     registration. Login returns the user's active session, creating one
//     (with a signed JWT access token and an opaque refresh token) only when
//     none exists.
//   - ApiKeys authorizes static keys loaded with their rights, and
//     middleware/authware gates requests on either scheme, resolving a
//     canonical Identity regardless of which credential was presented.
package core
