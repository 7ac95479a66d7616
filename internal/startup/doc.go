// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// This package centralizes all application configuration and provides
// consistent logging throughout the application lifecycle.
//
// # Configuration
//
// All configuration is loaded from environment variables via [LoadConfig].
// The following environment variables are supported:
//
//   - LIBRARY_DIR: Path to the media library root holding per-media containers (default: /library)
//   - DATABASE_DIR: Path to the catalog database directory (default: /database)
//   - PORT: HTTP server port (default: 8080)
//   - DELETE_POLICY: What happens to media under a deleted directory subtree,
//     unlink or cascade (default: unlink)
//   - INGEST_WORKERS: Override for the concurrent ingest worker count
//   - VIPS_ENABLED: Use libvips for thumbnail generation when available (default: false)
//   - METRICS_ENABLED: Serve Prometheus metrics on /metrics (default: true)
//   - LOG_LEVEL: Logging level - debug, info, warn, error (default: info)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: true)
//
// # Directory Setup
//
// Both the library and database directories are required: they are created
// if missing and probed for write access at startup.
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
package startup
