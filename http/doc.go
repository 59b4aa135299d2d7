// Package http provides the chi-based HTTP surface for sitedock: account
// registration and login, multipart site uploads, site management endpoints,
// sandboxed static serving of deployed trees, and an admin report.
package http
