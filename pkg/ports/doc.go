/*
Package ports defines the driven ports (interfaces) used around the rowflow validator.

The validator itself is pure; these interfaces only matter to callers that track
a row across several validations (see package session).

# Key Interfaces

  - ResultStore: persists the latest Result of each tracked row (memory, files or Redis).
  - DistributedLocker: serializes concurrent validations of the same row across replicas.
*/
package ports
