package app

import "errors"

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrIngestInFlight = errors.New("ingestion already in progress for this book")
	ErrIngestEnqueue  = errors.New("ingest job enqueue failed")
)
