// Package engine is the offline-first sync engine for grocery lists.
//
// An Engine owns the local cache, the pending action queue and the logic
// that moves actions between them and the backend:
//
//   - Mutations (CheckItem, UncheckItem, AddToPantry) update the cache
//     immediately, then either reach the server directly or land in the
//     queue. They never fail from the caller's point of view; the returned
//     Outcome says which of the two happened. Mutations of one item run one
//     at a time, so a slow direct call holds later edits of that item.
//   - Drain replays the queue in FIFO order. Confirmed actions are removed in
//     one batch at the end of the pass. Failed actions stay queued with a
//     retry delay, or are dead-lettered when the failure is permanent or the
//     retry budget is spent. Once an action for an item fails, later actions
//     for the same item wait for the next pass.
//   - RefreshLists fetches the server's lists and replaces the cache, after
//     re-applying any still-queued actions so local edits stay visible.
//
// Drains are single-flight: a call made while a pass is running waits for
// that pass and shares its report. A transition to online starts a drain
// that ignores retry delays; if it joins a pass that honored them, the
// flight runs one more pass with delays ignored before returning.
package engine
