// internal/app/system/sanitize/sanitize.go

// Package sanitize strips unsafe HTML from user-authored content bodies
// before they are stored.
package sanitize

import "github.com/microcosm-cc/bluemonday"

var bodyPolicy = bluemonday.UGCPolicy()
var strictPolicy = bluemonday.StrictPolicy()

// Body keeps the user-generated-content subset of HTML (formatting,
// links, images) and drops scripts and event handlers.
func Body(s string) string {
	return bodyPolicy.Sanitize(s)
}

// Text strips all HTML, for fields that should be plain text.
func Text(s string) string {
	return strictPolicy.Sanitize(s)
}
