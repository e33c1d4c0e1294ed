package chat

import (
	"context"
	"log/slog"

	"udpchat/internal/storage/history"
	"udpchat/internal/util/logger/sl"
)

type HistoryAppender interface {
	Append(ctx context.Context, text string) (history.Record, error)
}

// Recorder сохраняет принятые строки в историю. Ошибки транспорта он не хранит.
type Recorder struct {
	store HistoryAppender
	log   *slog.Logger
}

func NewRecorder(store HistoryAppender, log *slog.Logger) *Recorder {
	return &Recorder{
		store: store,
		log:   log.With(slog.String("component", "recorder")),
	}
}

func (r *Recorder) ReceiveMessage(text string) {
	if _, err := r.store.Append(context.Background(), text); err != nil {
		r.log.Error("Failed to store message", sl.Err(err))
	}
}

func (r *Recorder) Error(error) {}
