package controller

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"cardsort/internal/history"
	"cardsort/internal/logging"
	"cardsort/internal/pricing"
	"cardsort/internal/router"
	"cardsort/internal/sortlog"
)

// defaultMilestoneEvery controls how often the notifier hears about
// progress when the wiring does not say otherwise.
const defaultMilestoneEvery = 50

func (c *Controller) loop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		default:
		}

		update := c.cycle(ctx)
		c.publish(update)

		if update.Failed() {
			if c.notifier != nil {
				c.notifier.CycleError(ctx, update.Err)
			}
		} else if c.notifier != nil {
			c.mu.Lock()
			total := c.runtime.TotalCount()
			c.mu.Unlock()
			if total > 0 && total%c.milestoneEvery == 0 {
				c.notifier.Milestone(ctx, total)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-time.After(c.cycleDelay):
		}
	}
}

// cycle runs one capture-identify-price-route-actuate pass. Every failure
// is folded into the returned update; the decision, once routed, is always
// actuated and logged before the loop re-checks for stop.
func (c *Controller) cycle(ctx context.Context) Update {
	update := Update{CycleID: uuid.NewString(), At: time.Now()}
	cycleLog := c.logger.With(logging.String(logging.FieldCycleID, update.CycleID))

	framePath, err := c.capture.Capture(ctx)
	if err != nil {
		update.Err = err.Error()
		cycleLog.Warn("capture failed", logging.Error(err))
		return update
	}

	text, err := c.ocr.Extract(ctx, framePath)
	if err != nil {
		// OCR trouble degrades to an empty read; the identifier turns that
		// into a zero-confidence result and routing still proceeds.
		cycleLog.Warn("text extraction failed", logging.Error(err))
		text = ""
	}

	recognition := c.recognizer.Identify(ctx, text)
	update.Card = recognition

	c.mu.Lock()
	mode := c.runtime.Mode
	threshold := c.runtime.PriceThresholdUSD
	disabled := c.runtime.DisabledSet()
	c.mu.Unlock()

	if recognition.Recognized() {
		result := c.pricer.Resolve(ctx, pricing.Query{
			Name:            recognition.Name,
			SetCode:         recognition.SetCode,
			CollectorNumber: recognition.CollectorNumber,
		})
		update.PriceUSD = result.Price
		update.PriceSource = result.Source
	}

	decision := router.Route(router.Input{
		Recognition:     recognition,
		PriceUSD:        update.PriceUSD,
		Mode:            router.Mode(mode),
		ThresholdUSD:    threshold,
		ConfidenceFloor: c.confidenceFloor,
		Disabled:        disabled,
	})
	update.Bin = decision.Bin
	update.Reason = decision.Reason
	update.Flags = decision.Flags

	if err := c.mover.Drop(ctx, decision.Bin); err != nil {
		update.Err = err.Error()
		cycleLog.Error("actuation failed",
			logging.String(logging.FieldBin, decision.Bin),
			logging.Error(err))
		return update
	}

	c.record(ctx, cycleLog, update, mode)

	cycleLog.Info("card sorted",
		logging.String(logging.FieldCard, recognition.Name),
		logging.String(logging.FieldBin, decision.Bin),
		logging.String("reason", decision.Reason),
		logging.Float64("confidence", recognition.Confidence))
	return update
}

// record appends the cycle to the CSV log and history store and persists
// the updated counts. Record-keeping failures are logged but do not fail
// the cycle; the card is already in its bin.
func (c *Controller) record(ctx context.Context, cycleLog *slog.Logger, update Update, mode string) {
	if c.csv != nil {
		err := c.csv.Append(sortlog.Entry{
			Timestamp:       update.At,
			Name:            update.Card.Name,
			SetCode:         update.Card.SetCode,
			CollectorNumber: update.Card.CollectorNumber,
			PriceUSD:        update.PriceUSD,
			PriceSource:     update.PriceSource,
			Bin:             update.Bin,
			Flags:           update.Flags,
		})
		if err != nil {
			cycleLog.Warn("csv append failed", logging.Error(err))
		}
	}

	if c.history != nil {
		_, err := c.history.Append(ctx, historyRecord(update, mode))
		if err != nil {
			cycleLog.Warn("history append failed", logging.Error(err))
		}
	}

	c.mu.Lock()
	c.runtime.RecordCycle(update.Bin)
	err := c.persistLocked()
	c.mu.Unlock()
	if err != nil {
		cycleLog.Warn("state persist failed", logging.Error(err))
	}
}

func historyRecord(update Update, mode string) history.Record {
	return history.Record{
		CycleID:         update.CycleID,
		SortedAt:        update.At,
		Name:            update.Card.Name,
		SetCode:         update.Card.SetCode,
		CollectorNumber: update.Card.CollectorNumber,
		Confidence:      update.Card.Confidence,
		PriceUSD:        update.PriceUSD,
		PriceSource:     update.PriceSource,
		Bin:             update.Bin,
		Reason:          update.Reason,
		Flags:           update.Flags,
		Mode:            mode,
	}
}

// publish delivers an update without ever blocking the loop: when the
// buffer is full the oldest update is discarded.
func (c *Controller) publish(update Update) {
	for {
		select {
		case c.updates <- update:
			return
		default:
		}
		select {
		case <-c.updates:
		default:
		}
	}
}
