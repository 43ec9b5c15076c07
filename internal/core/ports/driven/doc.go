// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - MemoryFS: Read access to the turn, knowledge-note, and preference files
//   - CacheStoreRepo: Per-session cache store persistence with conflict detection
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - EmbeddingService: Generates vector embeddings. Without it, semantic
//     scoring and semantic cache lookup are disabled; retrieval degrades
//     to lexical-only.
//   - SearchTelemetry: Write-only per-query observability records.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
