package usecase

import (
	"context"

	"TradePilot/internal/domain/models"
	drepo "TradePilot/internal/domain/repository"
	pkgqueue "TradePilot/pkg/queue"
)

// MsgClosedTradeArchive is the queue message type for confirmed closes.
const MsgClosedTradeArchive = "closed_trade.archive"

// ClosedTradeArchiveJob drains the close queue into the history store.
// Running it off the execution path keeps ClickHouse hiccups from blocking
// position closes; the queue's retry and dead-letter handling cover outages.
type ClosedTradeArchiveJob struct {
	history drepo.SignalHistory
}

func NewClosedTradeArchiveJob(history drepo.SignalHistory) *ClosedTradeArchiveJob {
	return &ClosedTradeArchiveJob{history: history}
}

func (j *ClosedTradeArchiveJob) Name() string { return "closed-trade-archive" }

func (j *ClosedTradeArchiveJob) Type() string { return MsgClosedTradeArchive }

func (j *ClosedTradeArchiveJob) Handle(ctx context.Context, payload interface{}) error {
	trade, err := pkgqueue.ParsePayload[models.ClosedTrade](payload)
	if err != nil {
		return err
	}
	return j.history.AppendClosedTrade(ctx, trade)
}

var _ pkgqueue.Job = (*ClosedTradeArchiveJob)(nil)
