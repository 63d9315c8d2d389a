// Package backend provides the HTTP client for the kitchen REST API.
//
// # Overview
//
// Only the grocery surface the sync engine depends on is covered:
//
//	GET   /grocery                                      list summaries
//	GET   /grocery/{list_id}                            one list with items
//	PATCH /grocery/{list_id}/items/{item_id}            {"checked": bool}
//	POST  /grocery/{list_id}/items/{item_id}/to-pantry  move item to pantry
//	GET   /health                                       reachability check
//
// Paths are relative to the configured API URL (default
// http://127.0.0.1:8000/api/v1). /health lives at the origin root.
//
// # Authentication
//
// Requests carry a bearer token obtained from a CredentialProvider. The
// client never stores tokens itself. A 401 response invalidates the provider
// and surfaces ErrUnauthorized, which callers treat as transient: the action
// stays queued until re-authentication and the next drain.
//
// # Errors
//
// Every failure is returned as *Error, carrying the operation, the HTTP status
// (zero for transport failures) and a Category:
//
//   - Transient: connection refused, timeouts, 5xx, 401, 408, 429, decode failures
//   - Permanent: 400, 404, 405, 410, 422 (replaying the request cannot succeed)
//
// GET requests are retried a few times with exponential backoff before an
// error is returned. Mutating requests are never retried here; the pending
// action queue owns that.
package backend
