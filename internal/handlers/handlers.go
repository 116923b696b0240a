package handlers

import (
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/openmohaa/medal-forecast/internal/logic"
)

// MaxBodySize limits the size of JSON request bodies to 1MB
const MaxBodySize = 1048576

// DefaultMaxSourceBytes limits uploaded source text when Config leaves it unset
const DefaultMaxSourceBytes = 8 << 20

// JobQueue reports the backlog of the async forecast pool
type JobQueue interface {
	QueueDepth() int
}

// SourceOpener resolves a source URI to a fetcher
type SourceOpener func(uri string) (logic.Fetcher, error)

type Config struct {
	Queue  JobQueue
	Logger *zap.Logger
	// Services
	Forecast   logic.ForecastService
	Classifier logic.ClassificationAdapter
	// Sources
	OpenSource     SourceOpener
	ForecastSource string
	MaxSourceBytes int64
}

type Handler struct {
	queue          JobQueue
	logger         *zap.SugaredLogger
	validate       *validator.Validate
	forecast       logic.ForecastService
	classifier     logic.ClassificationAdapter
	openSource     SourceOpener
	forecastSource string
	maxSourceBytes int64
}

func New(cfg Config) *Handler {
	maxBytes := cfg.MaxSourceBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxSourceBytes
	}
	return &Handler{
		queue:          cfg.Queue,
		logger:         cfg.Logger.Sugar(),
		validate:       newValidator(),
		forecast:       cfg.Forecast,
		classifier:     cfg.Classifier,
		openSource:     cfg.OpenSource,
		forecastSource: cfg.ForecastSource,
		maxSourceBytes: maxBytes,
	}
}
