// Package supervisor owns the lifecycle of the Instagram gateway subprocess.
//
// A Supervisor takes the process from NotStarted through Starting to Ready
// or Failed, and guarantees that neither the child process nor the temporary
// credential file outlives it:
//
//   - Start first probes the gateway address; a gateway that is already
//     healthy is adopted without launching anything (idempotent start, and
//     the basis of the pre-connected deployment mode).
//   - Otherwise it assembles the cookie bundle, writes it to an exclusively
//     owned temporary file, locates the gateway executable, launches it with
//     the file path injected via IG_COOKIE_FILE, and polls /health once per
//     second until the gateway is ready, the child exits, or the attempt
//     budget runs out.
//   - Stop sends SIGTERM, escalates to SIGKILL after a grace period, and
//     removes the credential file. Stop is idempotent: it is wired to both
//     the shutdown signal handler and normal exit, and the second call is a
//     no-op.
//
// Exactly one gateway process is supervised per Supervisor, and Start blocks
// the caller until the outcome is known. Failures (missing credentials,
// missing executable, spawn error, early exit, readiness timeout) are
// terminal; retrying is the caller's decision.
package supervisor
