package creds

import (
	"encoding/base64"
	"encoding/json"
	"os"
	"strings"
)

// Cookie names used by the Instagram web session.
const (
	CookieSessionID = "sessionid"
	CookieUserID    = "ds_user_id"
	CookieCSRFToken = "csrftoken"
	CookieMID       = "mid"
	CookieDeviceID  = "ig_did"
	CookieRUR       = "rur"
)

// Environment variables recognized by the assembler.
const (
	EnvSessionID = "IG_SESSIONID"
	EnvUserID    = "IG_DS_USER_ID"
	EnvCSRFToken = "IG_CSRFTOKEN"
	EnvMID       = "IG_MID"
	EnvDeviceID  = "IG_DID"
	EnvRUR       = "IG_RUR"
	EnvCombined  = "IG_COOKIES"
)

// RequiredEnvVars lists the individual variables that must all be set for the
// primary assembly path. Used in operator-facing diagnostics.
var RequiredEnvVars = []string{EnvSessionID, EnvUserID, EnvCSRFToken}

// optionalEnvCookies maps the optional environment variables to their cookie names.
var optionalEnvCookies = map[string]string{
	EnvMID:      CookieMID,
	EnvDeviceID: CookieDeviceID,
	EnvRUR:      CookieRUR,
}

// Bundle is the assembled set of session cookies, keyed by cookie name.
// A bundle returned by Assemble always contains non-empty values for the
// three required cookies.
type Bundle map[string]string

// SessionID returns the session cookie value.
func (b Bundle) SessionID() string { return b[CookieSessionID] }

// UserID returns the logged-in user's numeric ID.
func (b Bundle) UserID() string { return b[CookieUserID] }

// CSRFToken returns the CSRF token cookie value.
func (b Bundle) CSRFToken() string { return b[CookieCSRFToken] }

// MarshalJSON is the canonical serialization written to the credential file.
// The zero-value map marshals as {}.
func (b Bundle) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string(b))
}

// Assemble builds a Bundle from the process environment.
// The boolean result is false when no source yields a complete bundle.
func Assemble() (Bundle, bool) {
	return AssembleFrom(os.Getenv)
}

// AssembleFrom builds a Bundle using the provided environment lookup.
// It tries, in order: the individual variables, a base64-encoded combined
// value, and a raw JSON combined value. Decode and parse failures are not
// errors; they fall through to the next source.
func AssembleFrom(getenv func(string) string) (Bundle, bool) {
	if b, ok := fromIndividual(getenv); ok {
		return b, true
	}

	combined := strings.TrimSpace(getenv(EnvCombined))
	if combined == "" {
		return nil, false
	}

	if decoded, err := base64.StdEncoding.DecodeString(combined); err == nil {
		if b, ok := parseBundle(decoded); ok {
			return b, true
		}
	}

	if b, ok := parseBundle([]byte(combined)); ok {
		return b, true
	}

	return nil, false
}

// fromIndividual assembles from the per-cookie variables. All three required
// variables must be present and non-empty; optional ones are added if set.
func fromIndividual(getenv func(string) string) (Bundle, bool) {
	sessionID := getenv(EnvSessionID)
	userID := getenv(EnvUserID)
	csrfToken := getenv(EnvCSRFToken)

	if sessionID == "" || userID == "" || csrfToken == "" {
		return nil, false
	}

	b := Bundle{
		CookieSessionID: sessionID,
		CookieUserID:    userID,
		CookieCSRFToken: csrfToken,
	}
	for envVar, cookie := range optionalEnvCookies {
		if v := getenv(envVar); v != "" {
			b[cookie] = v
		}
	}
	return b, true
}

// parseBundle interprets data as a flat JSON object of string (or null)
// values and validates the required cookies.
func parseBundle(data []byte) (Bundle, bool) {
	var raw map[string]*string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, false
	}

	b := make(Bundle, len(raw))
	for k, v := range raw {
		if v != nil && *v != "" {
			b[k] = *v
		}
	}

	if b[CookieSessionID] == "" || b[CookieUserID] == "" || b[CookieCSRFToken] == "" {
		return nil, false
	}
	return b, true
}
