package session

import (
	"context"
	"log/slog"

	"github.com/isajjim/estimator/internal/models"
)

// Adjust sets one furniture item's quantity. The local copy changes
// immediately; the aggregate line items are replaced with whatever the server
// recomputes. A rejected update leaves the local quantity as edited.
func (c *Controller) Adjust(ctx context.Context, furnitureID int64, quantity int) error {
	if quantity < 0 {
		return validation("quantity must not be negative, got %d", quantity)
	}

	c.mu.Lock()
	estimateID := c.state.EstimateID
	if c.state.Phase != models.PhaseReady || c.state.Result == nil {
		c.mu.Unlock()
		return validation("there is no analysed estimate to adjust")
	}
	if !c.state.Result.SetQuantity(furnitureID, quantity) {
		c.mu.Unlock()
		return validation("estimate %d has no furniture item %d", estimateID, furnitureID)
	}
	if c.inFlight == 0 {
		c.burstPrev = c.state.Update
	}
	c.inFlight++
	c.state.Update = models.UpdateUpdating
	gen := c.state.Generation
	c.mu.Unlock()

	items, err := c.backend.UpdateFurniture(ctx, estimateID, furnitureID, quantity)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.currentLocked(gen, estimateID) {
		return ErrSuperseded
	}
	c.inFlight--
	if err != nil {
		if c.inFlight == 0 {
			c.state.Update = c.burstPrev
		}
		failure := &Failure{Kind: KindAdjustment, EstimateID: estimateID, Err: err}
		c.state.LastError = failure
		slog.Error("Quantity update rejected", "estimate_id", estimateID, "furniture_id", furnitureID, "quantity", quantity, "error", err)
		return failure
	}

	c.state.Result.Items = append([]models.LineItem(nil), items...)
	if c.inFlight == 0 {
		c.state.Update = models.UpdateDone
	}
	slog.Info("Quantity updated", "estimate_id", estimateID, "furniture_id", furnitureID, "quantity", quantity)
	return nil
}
