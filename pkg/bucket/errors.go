package bucket

import "errors"

// Sentinel errors returned by Bucket's write path. They map directly
// onto the error taxonomy kinds: Unauthorized, RateLimited, and
// MigrationLocked fail the call with no state mutated.
var (
	ErrUnauthorized    = errors.New("bucket: caller is not authorized to write")
	ErrRateLimited     = errors.New("bucket: event references more than the allowed number of distinct principals while rate limiting is active")
	ErrMigrationLocked = errors.New("bucket: migrate is only allowed before the first insert")
)

// MaxPrincipalsPerEvent bounds how many distinct principals a single
// event may reference while rate limiting is enforced.
const MaxPrincipalsPerEvent = 7
