// Package middleware exposes HTTP middleware adapters built on top of
// authcore.Engine validation.
//
// # Guards
//
//   - [Guard] validates the bearer access token and injects claims into
//     the request context.
//   - [RequireRole] gates a route on the validated role.
//   - [RequirePermission] gates a route on a capability string, with "*"
//     as a wildcard.
//
// [Guard] reads the Authorization header, calls Engine.Validate, surfaces
// refresh hints and warnings as response headers, and rejects every failed
// validation with an undifferentiated 401 so callers cannot probe which
// check failed.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself; all decisions are delegated to
// Engine.Validate.
package middleware
