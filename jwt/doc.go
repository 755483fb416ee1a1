// Package jwt implements the token codec: signing and verification of the
// four token classes (access, refresh, verification, password reset), each
// with its own HMAC secret and lifetime.
//
// # Design
//
// A [Manager] is a pure function of (claims, config, clock). It performs no
// I/O, keeps no mutable state, and is safe for concurrent use. Class
// separation is cryptographic: a token signed with the refresh secret can
// never verify against the access secret, independent of the tokenType
// claim. The claim is still checked by callers as a second, cheaper fence.
//
// # Failure modes
//
// Verification distinguishes failures instead of collapsing them:
//
//   - [ErrExpired]: temporally invalid but structurally trustworthy; the
//     decoded claims are returned alongside the error so callers can decide
//     whether a refresh is appropriate.
//   - [ErrMalformed]: signature or structure invalid; never trustworthy.
//   - [ErrWrongSecretOrIssuer]: signed by a different authority.
//   - [ErrAudienceMismatch]: valid token presented to the wrong client
//     surface.
package jwt
