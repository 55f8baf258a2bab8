/*
Package session tracks rows across successive validations.

A data-entry client validates the same row after every keystroke. The Manager
keeps the latest Result of each row in a ports.ResultStore (memory, files or Redis),
serializes concurrent validations of the same row (optionally across replicas
with a ports.DistributedLocker) and returns a domain.ResultDiff so the client
only repaints what changed.
*/
package session
