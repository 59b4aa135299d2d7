package sitedock

import "regexp"

var validSiteNameRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// IsValidSiteName reports whether name is a legal site slug: 1 to 64
// characters drawn from [A-Za-z0-9_-]. Names are path components in served
// URLs and on disk, so nothing else is allowed.
func IsValidSiteName(name string) bool {
	return validSiteNameRegex.MatchString(name)
}
