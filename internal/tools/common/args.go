package common

import "strings"

// NormalizeUsername strips leading "@"s and surrounding whitespace from an
// Instagram username argument. Clients frequently pass handles the way they
// appear in the app ("@jane_doe"); the gateway expects the bare username.
func NormalizeUsername(username string) string {
	return strings.TrimLeft(strings.TrimSpace(username), "@")
}

// ThreadFromArgs extracts the thread_id argument, if present.
func ThreadFromArgs(args map[string]interface{}) string {
	if v, ok := args["thread_id"].(string); ok {
		return v
	}
	return ""
}

// UsernameFromArgs extracts and normalizes the username argument, if present.
func UsernameFromArgs(args map[string]interface{}) string {
	if v, ok := args["username"].(string); ok {
		return NormalizeUsername(v)
	}
	return ""
}

// LimitFromArgs extracts a numeric limit argument, clamped to [1, max].
// A max of zero or less means no upper bound. Returns def when the argument
// is absent or not a number.
func LimitFromArgs(args map[string]interface{}, key string, def, max int) int {
	v, ok := args[key]
	if !ok {
		return def
	}
	// JSON numbers arrive as float64
	f, ok := v.(float64)
	if !ok {
		return def
	}
	limit := int(f)
	if limit < 1 {
		return def
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}
