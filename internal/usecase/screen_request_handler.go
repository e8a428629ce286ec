package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"MomentumScreener/internal/domain/models"
	xlogger "MomentumScreener/pkg/logger"
)

// ScreenRequestHandler starts a screening run for every trigger message on its topic.
type ScreenRequestHandler struct {
	topic    string
	screener Screener
	logger   *xlogger.Logger
}

func NewScreenRequestHandler(topic string, screener Screener, logger *xlogger.Logger) *ScreenRequestHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &ScreenRequestHandler{topic: topic, screener: screener, logger: logger}
}

func (h *ScreenRequestHandler) Topic() string { return h.topic }

// Handle decodes a ScreenTrigger. Malformed payloads are logged and dropped so
// they are not redelivered; screening errors are returned for transport retry.
func (h *ScreenRequestHandler) Handle(ctx context.Context, data []byte) error {
	var trig models.ScreenTrigger
	if len(data) > 0 {
		if err := json.Unmarshal(data, &trig); err != nil {
			h.logger.Warn("discarding malformed screen trigger", xlogger.Error(err))
			return nil
		}
	}

	res, err := h.screener.Screen(ctx, ScreenParams{
		Symbols:    trig.Symbols,
		MaxSymbols: trig.MaxSymbols,
	})
	if err != nil {
		return fmt.Errorf("triggered screening: %w", err)
	}
	h.logger.Info("triggered screening finished",
		xlogger.String("run_id", res.RunID),
		xlogger.Int("evaluated", res.Evaluated),
	)
	return nil
}
