// Package ui is the Bubble Tea front end used to drive and watch the sync
// engine.
//
// # Views
//
//   - Lists: every cached grocery list with its status badge and checked count
//   - Items: the lines of one list; space toggles checked, p adds to pantry
//   - Log: the tail of the engine's JSON log, decoded by logtail
//
// A status line under the header is always visible. It shows an OFFLINE
// banner when the monitor reports no connectivity, the pending-action count,
// dead letters awaiting a manual retry, and when the lists were last synced.
// Mutations never show errors; a deferred mutation only flashes a short
// notice. A failed refresh is the one error surfaced to the user.
//
// # Update Cycle
//
// A tick every Options.Tick re-reads the engine's lists and the SyncState
// snapshot. Engine calls run inside tea.Cmds so the event loop never blocks
// on the network.
//
// # Preferences
//
// The theme (T) and the hide-checked filter (H) are persisted through the
// prefs package whenever they change.
package ui
