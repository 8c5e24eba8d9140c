package utils

import "github.com/microcosm-cc/bluemonday"

// ugcPolicy allows the markup user generated content may carry and strips
// everything else. Applied to titles, comment bodies and signatures before
// they are persisted or classified.
var ugcPolicy = bluemonday.UGCPolicy()

// Sanitize strips unsafe HTML from user supplied text.
func Sanitize(input string) string {
	return ugcPolicy.Sanitize(input)
}
