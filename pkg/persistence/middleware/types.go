// Package middleware provides composable store wrappers: caching, logging,
// metrics, encryption at rest and PII masking. Middleware stack in front of
// any ports.Store without the models noticing.
package middleware

import "github.com/aretw0/graft/pkg/ports"

// Middleware allows wrapping a Store to add behavior.
type Middleware func(ports.Store) ports.Store
