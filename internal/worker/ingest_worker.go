package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"bookwise/internal/app"
	"bookwise/internal/model"
)

// BookIngester runs the ingestion pipeline for one book path.
type BookIngester interface {
	Ingest(ctx context.Context, bookPath string) (*app.IngestResult, error)
}

// IngestWorker consumes queued ingest jobs and indexes the books in the
// background. Jobs for a book that is already being ingested are dropped;
// the in-flight run covers them.
type IngestWorker struct {
	conn      *amqp.Connection
	ingester  BookIngester
	queueName string
	logger    zerolog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewIngestWorker(conn *amqp.Connection, ingester BookIngester, queueName string, logger zerolog.Logger) *IngestWorker {
	return &IngestWorker{
		conn:      conn,
		ingester:  ingester,
		queueName: queueName,
		logger:    logger,
	}
}

func (w *IngestWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	_, err = ch.QueueDeclare(w.queueName, true, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}

	deliveries, err := ch.Consume(w.queueName, "", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				w.handle(workerCtx, d)
			}
		}
	}()

	return nil
}

func (w *IngestWorker) handle(ctx context.Context, d amqp.Delivery) {
	var job model.IngestJob
	if err := json.Unmarshal(d.Body, &job); err != nil {
		w.logger.Error().Err(err).Msg("worker decode ingest job failed")
		_ = d.Nack(false, false)
		return
	}

	result, err := w.ingester.Ingest(ctx, job.BookPath)
	if err != nil {
		if errors.Is(err, app.ErrIngestInFlight) {
			w.logger.Debug().Str("book", job.BookPath).Msg("ingest already running, dropping queued job")
			_ = d.Ack(false)
			return
		}
		w.logger.Error().Err(err).Str("book", job.BookPath).Msg("worker ingest failed")
		_ = d.Nack(false, false)
		return
	}

	w.logger.Info().Str("book", job.BookPath).Str("status", result.Status).
		Int("chunks", result.ChunksIndexed).Msg("queued ingest finished")
	_ = d.Ack(false)
}

func (w *IngestWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
