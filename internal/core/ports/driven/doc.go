// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - Store: Document persistence and querying (memory, sqlite, remote)
//   - RemoteClient: Delivery and sync API of the remote space (cdn, export)
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - DocumentCache: Backs the caching middleware. Without it reads always hit the Store.
//   - JobScheduler: Runs delayed webhook retries. Without it unmatched webhooks are not retried.
//   - SyncSubscriber: Receives every synced item. Zero subscribers is valid.
//
// # Import Rules
//
//   - Can Import: domain and query packages only
//   - Cannot Import: Any adapter package
package driven
