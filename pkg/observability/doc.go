/*
Package observability provides tools for monitoring the Graft mapper.

It exposes Prometheus metrics for store operations and hook execution, and
bridges the engine's hook events into those metrics so applications get
lifecycle visibility by wiring a single option.
*/
package observability
