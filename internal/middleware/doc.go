// Package middleware provides HTTP middleware for the media vault API.
//
// It includes:
//   - Request logging in W3C Extended Log Format
//   - Prometheus request metrics with bounded label cardinality
package middleware
