// Package app is the composition root for the kitchen client.
//
// # Overview
//
// Run loads configuration, opens the local store and log file, builds the
// grocery API client and the sync engine, starts the background loops, and
// then hands control to the TUI until the user quits or the context is
// cancelled.
//
// # Startup
//
//  1. Load ~/.config/kitchen/config.toml (defaults when missing)
//  2. Open the log file under data_dir and tag each component
//  3. Load UI preferences
//  4. Open the bbolt store at <data_dir>/kitchen.db
//  5. Build the API client with the token file credentials
//  6. Build the connectivity monitor and the engine, then restore the
//     cached lists and the pending queue
//  7. Start the health poller, the list poller and the periodic drainer
//  8. Run the TUI (blocks)
//
// # Background Loops
//
//	┌───────────────────────────────────────────────┐
//	│ HealthPoller Health() ──> Monitor.Update()    │
//	│                       └─> engine drains       │
//	│                           on reconnect        │
//	│ StartPoller  RefreshLists() every interval,   │
//	│              backing off on failure, skipped  │
//	│              while offline                    │
//	│ StartDrainer Drain() every few seconds for    │
//	│              actions whose retry delay passed │
//	└───────────────────────────────────────────────┘
//
// Every loop stops when the Run context is cancelled.
//
// # Error Handling
//
// Fatal errors (returned from Run):
//   - Invalid configuration file
//   - Log file or store cannot be opened
//   - Invalid api_url
//
// Everything after startup is recoverable: failed refreshes back off,
// failed mutations stay queued, and the TUI shows both.
package app
