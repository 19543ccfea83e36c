// Package creds assembles the Instagram session cookie bundle the gateway
// needs to authenticate.
//
// Credentials come from the environment, in strict priority order:
//
//  1. Individual variables (IG_SESSIONID, IG_DS_USER_ID, IG_CSRFTOKEN, plus
//     the optional IG_MID, IG_DID, IG_RUR)
//  2. IG_COOKIES containing base64-encoded bundle JSON
//  3. IG_COOKIES containing raw bundle JSON
//
// Assembly never fails with an error: a malformed combined value simply
// falls through to the next step, and exhausting all sources reports the
// bundle as unavailable. Callers are expected to surface the missing
// variables to the operator.
package creds
