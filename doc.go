// Package sitedock hosts packaged static sites. Authenticated users upload a
// tar.gz or zip archive; the service extracts it with path-safety checks and
// publishes it under a stable identifier path and a human-chosen name path,
// rewriting self-referential links for the name tree. Site records are kept
// in a swappable SQL backend (sqlite or postgres) with latest-by-name
// versioning and an owner index.
package sitedock
