/*
Package ports defines the driven ports (interfaces) for the Graft mapper.

These interfaces decouple models and their lifecycle chains from external
implementations, allowing the same schema to persist through various storage
backends and caches.

# Key Interfaces

  - Store: Responsible for persisting and querying documents (e.g., MongoDB, Postgres or Memory).
  - Cache: Responsible for short-lived document caching (e.g., Redis or Memory).
*/
package ports
