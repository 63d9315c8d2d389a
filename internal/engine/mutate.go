package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/dixonjam77-max/kitchen-command-center-sub000/internal/cache"
	"github.com/dixonjam77-max/kitchen-command-center-sub000/internal/metrics"
	"github.com/dixonjam77-max/kitchen-command-center-sub000/internal/queue"
)

// Outcome reports what happened to a mutation after the local update.
type Outcome int

const (
	// Confirmed means the server accepted the mutation directly.
	Confirmed Outcome = iota + 1
	// Deferred means the mutation was queued for a later drain.
	Deferred
)

func (o Outcome) String() string {
	switch o {
	case Confirmed:
		return "confirmed"
	case Deferred:
		return "deferred"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

var errUnknownAction = errors.New("unknown action type")

// CheckItem marks an item checked.
func (e *Engine) CheckItem(ctx context.Context, listID, itemID string) Outcome {
	return e.mutate(ctx, queue.CheckItem, listID, itemID)
}

// UncheckItem marks an item unchecked.
func (e *Engine) UncheckItem(ctx context.Context, listID, itemID string) Outcome {
	return e.mutate(ctx, queue.UncheckItem, listID, itemID)
}

// AddToPantry moves an item into the pantry, which also checks it.
func (e *Engine) AddToPantry(ctx context.Context, listID, itemID string) Outcome {
	return e.mutate(ctx, queue.AddToPantry, listID, itemID)
}

func (e *Engine) mutate(ctx context.Context, typ queue.ActionType, listID, itemID string) Outcome {
	log := e.log.With().Str("action", typ.String()).Str("list_id", listID).Str("item_id", itemID).Logger()

	// Held until the action is confirmed or queued, so a later mutation of
	// the same item cannot overtake a slow direct call.
	unlock := e.items.lock(queue.ItemKey{ListID: listID, ItemID: itemID})
	defer unlock()

	found, err := e.cache.ApplyItemMutation(listID, itemID, applyLocal(typ))
	if err != nil {
		log.Error().Err(err).Msg("persist optimistic update")
	}
	if !found {
		log.Debug().Msg("item not in cache; sending anyway")
	}

	// Items with queued actions go through the queue so the server sees
	// their actions in order.
	if e.state.IsOnline() && !e.queue.HasPending(listID, itemID) {
		err := e.call(ctx, typ, listID, itemID)
		if err == nil {
			e.metrics.Confirmed(typ.String(), metrics.PathDirect)
			log.Debug().Msg("confirmed directly")
			return Confirmed
		}
		e.metrics.Failed(typ.String())
		log.Info().Err(err).Msg("direct call failed; queueing")
	}

	action := queue.NewAction(typ, listID, itemID, e.now())
	result, err := e.queue.Enqueue(action)
	if err != nil {
		log.Error().Err(err).Msg("persist pending action")
	}
	e.metrics.Enqueued(typ.String(), result.String())
	e.publishCounts()
	log.Debug().Str("id", action.ID).Stringer("result", result).Msg("queued")
	return Deferred
}

// applyLocal returns the cache mutation for an action type.
func applyLocal(typ queue.ActionType) func(*cache.Item) {
	switch typ {
	case queue.CheckItem:
		return func(it *cache.Item) { it.Checked = true }
	case queue.UncheckItem:
		return func(it *cache.Item) { it.Checked = false }
	case queue.AddToPantry:
		return func(it *cache.Item) {
			it.AddedToPantry = true
			it.Checked = true
		}
	default:
		return func(*cache.Item) {}
	}
}

// call sends one action to the server under the per-call timeout.
func (e *Engine) call(ctx context.Context, typ queue.ActionType, listID, itemID string) error {
	ctx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	switch typ {
	case queue.CheckItem:
		return e.remote.SetItemChecked(ctx, listID, itemID, true)
	case queue.UncheckItem:
		return e.remote.SetItemChecked(ctx, listID, itemID, false)
	case queue.AddToPantry:
		return e.remote.AddItemToPantry(ctx, listID, itemID)
	default:
		return fmt.Errorf("%w %d", errUnknownAction, int(typ))
	}
}
