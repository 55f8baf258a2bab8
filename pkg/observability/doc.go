/*
Package observability turns validator lifecycle events into metrics and logs.

The runtime fires domain.LifecycleHooks for every classified variable and for
every finished validation. Metrics maps those events onto Prometheus
collectors; LogHooks writes them to a slog.Logger; Combine fans one event out
to several hook sets.
*/
package observability
