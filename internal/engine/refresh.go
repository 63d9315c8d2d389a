package engine

import (
	"context"
	"fmt"

	"github.com/dixonjam77-max/kitchen-command-center-sub000/internal/backend"
	"github.com/dixonjam77-max/kitchen-command-center-sub000/internal/cache"
	"github.com/dixonjam77-max/kitchen-command-center-sub000/internal/queue"
)

// RefreshLists fetches every list from the server and replaces the cache.
// Any failed fetch leaves the cache untouched.
func (e *Engine) RefreshLists(ctx context.Context) error {
	summaries, err := e.remote.ListSummaries(ctx)
	if err != nil {
		err = fmt.Errorf("list grocery lists: %w", err)
		e.state.RecordRefresh(err)
		return err
	}

	lists := make([]cache.List, 0, len(summaries))
	for _, s := range summaries {
		gl, err := e.remote.GetList(ctx, s.ID)
		if err != nil {
			err = fmt.Errorf("fetch grocery list %s: %w", s.ID, err)
			e.state.RecordRefresh(err)
			return err
		}
		lists = append(lists, fromRemote(gl))
	}

	pending := e.queue.All()
	for i := range lists {
		rebase(&lists[i], pending)
	}
	if err := e.cache.ReplaceAllLists(lists); err != nil {
		e.log.Error().Err(err).Msg("persist refreshed lists")
	}
	e.state.MarkSynced(e.cache.LastSynced())
	e.state.RecordRefresh(nil)
	e.log.Info().Int("lists", len(lists)).Int("rebased", len(pending)).Msg("lists refreshed")
	return nil
}

// RefreshList fetches one list and replaces it in the cache.
func (e *Engine) RefreshList(ctx context.Context, listID string) error {
	gl, err := e.remote.GetList(ctx, listID)
	if err != nil {
		err = fmt.Errorf("fetch grocery list %s: %w", listID, err)
		e.state.RecordRefresh(err)
		return err
	}
	list := fromRemote(gl)
	rebase(&list, e.queue.All())
	if err := e.cache.ReplaceList(list); err != nil {
		e.log.Error().Err(err).Str("list_id", listID).Msg("persist refreshed list")
	}
	e.state.MarkSynced(e.cache.LastSynced())
	e.state.RecordRefresh(nil)
	return nil
}

// rebase replays queued actions for list on top of the server's copy.
func rebase(list *cache.List, pending []queue.PendingAction) {
	for _, a := range pending {
		if a.ListID != list.ID {
			continue
		}
		apply := applyLocal(a.Type)
		for i := range list.Items {
			if list.Items[i].ID == a.ItemID {
				apply(&list.Items[i])
				break
			}
		}
	}
}

func fromRemote(gl *backend.GroceryList) cache.List {
	items := make([]cache.Item, len(gl.Items))
	for i, it := range gl.Items {
		items[i] = cache.Item{
			ID:            it.ID,
			ItemName:      it.ItemName,
			Quantity:      it.Quantity,
			Unit:          it.Unit,
			Category:      it.Category,
			Checked:       it.Checked,
			AddedToPantry: it.AddedToPantry,
			Source:        it.Source,
			Notes:         it.Notes,
		}
	}
	return cache.List{
		ID:            gl.ID,
		Name:          gl.Name,
		Status:        gl.Status,
		Store:         gl.Store,
		EstimatedCost: gl.EstimatedCost,
		Notes:         gl.Notes,
		Items:         items,
	}
}
