package usecase

import (
	"context"
	"encoding/json"
	"time"

	"TradePilot/internal/domain/models"
	drepo "TradePilot/internal/domain/repository"
	pkgkafka "TradePilot/pkg/kafka"
)

// SignalArchiver consumes published signal events and writes them to the
// history store. Archiving is the only path into signal history, so the
// hot evaluation loop never blocks on storage.
type SignalArchiver struct {
	topic   string
	history drepo.SignalHistory
	metrics drepo.Metrics
}

func NewSignalArchiver(topic string, history drepo.SignalHistory, metrics drepo.Metrics) *SignalArchiver {
	return &SignalArchiver{topic: topic, history: history, metrics: metrics}
}

func (a *SignalArchiver) Topic() string { return a.topic }

func (a *SignalArchiver) Handle(ctx context.Context, b []byte) error {
	var ev models.SignalEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		a.metrics.RecordError("archiver_unmarshal")
		return err
	}
	a.metrics.RecordLatency("archive_e2e_seconds", time.Since(time.Unix(ev.GeneratedAt, 0)).Seconds())

	start := time.Now()
	err := a.history.AppendSignal(ctx, ev.Signal())
	a.metrics.RecordLatency("ch_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		a.metrics.RecordError("archiver_store")
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*SignalArchiver)(nil)
