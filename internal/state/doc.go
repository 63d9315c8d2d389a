// Package state holds SyncState, the process-wide connectivity and sync
// status shared by the engine, the pollers and the UI.
//
// # Writers
//
//   - netmon.Monitor: SetOnline, on every online/offline transition
//   - engine.Engine: MarkSynced, SetQueueCounts, SetDraining
//   - the refresh path: RecordRefresh after each attempt
//
// The UI never writes. It renders Snapshot() once per tick: the OFFLINE
// banner from Online, the pending and failed badges from the queue counts,
// and "synced 3m ago" from LastSynced.
//
// # Online Flag
//
// A zero SyncState reports online. Connectivity starts out unknown and
// unknown counts as online, so the first mutation tries a direct call.
//
// # Refresh Bookkeeping
//
// A successful refresh clears LastError and resets ConsecutiveFailures. A
// failed one records the error and bumps the counter, which the poller turns
// into a longer wait. MarkSynced ignores timestamps older than the current
// one.
//
// # Locking
//
// All methods take an RWMutex and never hold it across I/O. Snapshot returns
// a value copy, so callers may keep it as long as they like.
package state
