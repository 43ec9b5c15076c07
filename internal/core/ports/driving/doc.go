// Package driving defines the interfaces through which the outside world
// calls INTO core services.
//
// These are the "driving" or "primary" ports in hexagonal architecture.
// CLI commands and other entrypoints depend on these interfaces; the
// core services implement them.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or service package
package driving
