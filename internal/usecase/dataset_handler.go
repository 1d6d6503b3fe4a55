package usecase

import (
	"context"
	"encoding/json"

	"StockCast/internal/domain/errs"
	"StockCast/internal/domain/models"
	apphttp "StockCast/pkg/http"
	"StockCast/pkg/kafka"
	applogger "StockCast/pkg/logger"
)

// DatasetEventHandler consumes DatasetProcessed events and dispatches
// training for each announced snapshot.
type DatasetEventHandler struct {
	topic      string
	dispatcher *Dispatcher
	log        *applogger.Logger
}

var _ kafka.MessageHandler = (*DatasetEventHandler)(nil)

func NewDatasetEventHandler(topic string, dispatcher *Dispatcher, lgr *applogger.Logger) *DatasetEventHandler {
	return &DatasetEventHandler{topic: topic, dispatcher: dispatcher, log: lgr}
}

func (h *DatasetEventHandler) Topic() string { return h.topic }

// Handle dispatches the event's families, or the defaults when it names none.
// A malformed event is returned as an error so it lands in the dead-letter
// topic.
func (h *DatasetEventHandler) Handle(ctx context.Context, payload []byte) error {
	var ev models.DatasetProcessed
	if err := json.Unmarshal(payload, &ev); err != nil {
		return errs.Wrap(errs.MalformedInput, err, "dataset event")
	}
	if err := apphttp.ValidateStruct(ctx, &ev); err != nil {
		return errs.Wrap(errs.MalformedInput, err, "dataset event")
	}

	subs, err := h.dispatcher.Dispatch(ctx, ev.Location, ev.Families)
	if err != nil {
		return err
	}
	h.log.Info("dataset event dispatched",
		applogger.String("symbol", ev.Symbol),
		applogger.String("location", ev.Location),
		applogger.String("trace_id", kafka.TraceID(ctx)),
		applogger.Int("submissions", len(subs)))
	return nil
}
