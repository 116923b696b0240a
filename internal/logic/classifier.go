package logic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/openmohaa/medal-forecast/internal/inference"
	"github.com/openmohaa/medal-forecast/internal/models"
)

// Input tensor names of the medal classifier, one [1,1] tensor each
const (
	InputAge        = "Age"
	InputRank       = "Rank"
	InputGender     = "Gender"
	InputNOC        = "NOC"
	InputDiscipline = "Discipline"
	InputSport      = "Sport"
)

// ClassificationAdapter scores single athlete entries against a probabilistic
// medal classifier and ranks every label of its vocabulary.
type ClassificationAdapter interface {
	LoadAssets(ctx context.Context) error
	Reload(ctx context.Context) error
	Classify(ctx context.Context, in models.ClassificationInput) (*models.ClassificationResult, error)
	Status() models.ClassifierStatus
}

type classifier struct {
	model  SessionSource
	vocab  inference.ArtifactFetcher
	evict  func()
	logger *zap.SugaredLogger

	mu      sync.RWMutex
	session inference.Session
	labels  []string
	lastErr error
}

// ClassifierConfig wires the classifier's two assets
type ClassifierConfig struct {
	Model      SessionSource
	Vocabulary inference.ArtifactFetcher
	// Evict drops a cached session so Reload refetches the artifact
	Evict  func()
	Logger *zap.Logger
}

// NewClassificationAdapter creates a classifier; assets are loaded by LoadAssets
func NewClassificationAdapter(cfg ClassifierConfig) ClassificationAdapter {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &classifier{
		model:  cfg.Model,
		vocab:  cfg.Vocabulary,
		evict:  cfg.Evict,
		logger: logger.Sugar(),
	}
}

// LoadAssets loads the session and the label vocabulary concurrently. Each
// asset that loads is kept even if the other fails.
func (c *classifier) LoadAssets(ctx context.Context) error {
	var (
		session inference.Session
		labels  []string
	)

	g, gctx := errgroup.WithContext(ctx)
	var sessionErr, vocabErr error
	g.Go(func() error {
		if c.model == nil {
			sessionErr = &ModelLoadError{Err: errors.New("no classifier model configured")}
			return nil
		}
		s, err := c.model.Session(gctx)
		if err != nil {
			sessionErr = &ModelLoadError{Artifact: c.model.Name(), Err: err}
			return nil
		}
		session = s
		return nil
	})
	g.Go(func() error {
		if c.vocab == nil {
			vocabErr = errors.New("no label vocabulary configured")
			return nil
		}
		data, err := c.vocab.Fetch(gctx)
		if err != nil {
			vocabErr = fmt.Errorf("fetch vocabulary: %w", err)
			return nil
		}
		labels, vocabErr = ParseVocabulary(data)
		return nil
	})
	_ = g.Wait()

	err := errors.Join(sessionErr, vocabErr)

	c.mu.Lock()
	if session != nil {
		c.session = session
	}
	if labels != nil {
		c.labels = labels
	}
	c.lastErr = err
	c.mu.Unlock()

	if err != nil {
		c.logger.Warnw("Classifier assets incomplete", "error", err)
		return err
	}
	c.logger.Infow("Classifier ready", "labels", len(labels))
	return nil
}

// Reload drops both assets and loads them again
func (c *classifier) Reload(ctx context.Context) error {
	c.mu.Lock()
	c.session = nil
	c.labels = nil
	c.mu.Unlock()

	if c.evict != nil {
		c.evict()
	}
	return c.LoadAssets(ctx)
}

// Classify runs one entry through the model. Label is the arg-max class and
// Ranking lists every label by probability, descending, ties in vocabulary order.
func (c *classifier) Classify(ctx context.Context, in models.ClassificationInput) (*models.ClassificationResult, error) {
	c.mu.RLock()
	session, labels := c.session, c.labels
	c.mu.RUnlock()

	if session == nil || labels == nil {
		classifications.WithLabelValues("not_ready").Inc()
		return nil, ErrNotReady
	}

	inputs, err := classificationTensors(in)
	if err != nil {
		classifications.WithLabelValues("failed").Inc()
		return nil, &InferenceError{Err: err}
	}

	start := time.Now()
	outputs, err := session.Run(ctx, inputs)
	inferenceDuration.WithLabelValues("classify").Observe(time.Since(start).Seconds())
	if err != nil {
		classifications.WithLabelValues("failed").Inc()
		return nil, &InferenceError{Err: err}
	}

	probs, err := probabilityOutput(outputs, len(labels))
	if err != nil {
		classifications.WithLabelValues("failed").Inc()
		return nil, err
	}

	ranking := pairLabelsAndProbabilities(labels, probs)
	classifications.WithLabelValues("ok").Inc()
	return &models.ClassificationResult{
		Label:   ranking[0].Label,
		Ranking: ranking,
	}, nil
}

// Status reports which assets are loaded
func (c *classifier) Status() models.ClassifierStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := models.ClassifierStatus{
		SessionLoaded:    c.session != nil,
		VocabularyLoaded: c.labels != nil,
		Labels:           len(c.labels),
	}
	if c.lastErr != nil {
		status.LastError = c.lastErr.Error()
	}
	return status
}

func classificationTensors(in models.ClassificationInput) ([]inference.Tensor, error) {
	shape := []int64{1, 1}
	floats := []struct {
		name  string
		value float64
	}{
		{InputAge, in.Age},
		{InputRank, in.Rank},
	}
	strs := []struct {
		name  string
		value string
	}{
		{InputGender, in.Gender},
		{InputNOC, in.NOC},
		{InputDiscipline, in.Discipline},
		{InputSport, in.Sport},
	}

	tensors := make([]inference.Tensor, 0, len(floats)+len(strs))
	for _, f := range floats {
		t, err := inference.NewFloat32Tensor(f.name, shape, []float32{float32(f.value)})
		if err != nil {
			return nil, err
		}
		tensors = append(tensors, t)
	}
	for _, s := range strs {
		t, err := inference.NewStringTensor(s.name, shape, []string{s.value})
		if err != nil {
			return nil, err
		}
		tensors = append(tensors, t)
	}
	return tensors, nil
}

// probabilityOutput takes the first float output as the class probabilities
func probabilityOutput(outputs []inference.Tensor, classes int) ([]float32, error) {
	for _, out := range outputs {
		if out.Float32s == nil {
			continue
		}
		if len(out.Float32s) != classes {
			return nil, &SchemaError{Reason: fmt.Sprintf("output %q has %d probabilities for %d labels", out.Name, len(out.Float32s), classes)}
		}
		for _, p := range out.Float32s {
			if math.IsNaN(float64(p)) || math.IsInf(float64(p), 0) {
				return nil, &SchemaError{Reason: fmt.Sprintf("output %q holds non-finite probabilities", out.Name)}
			}
		}
		return out.Float32s, nil
	}
	return nil, &SchemaError{Reason: "model returned no probability output"}
}

// pairLabelsAndProbabilities ranks labels by probability. The sort is stable so
// equal probabilities keep vocabulary order and the first maximum leads.
func pairLabelsAndProbabilities(labels []string, probs []float32) []models.LabelProbability {
	ranking := make([]models.LabelProbability, len(labels))
	for i, label := range labels {
		ranking[i] = models.LabelProbability{Label: label, Probability: float64(probs[i])}
	}
	sort.SliceStable(ranking, func(i, j int) bool {
		return ranking[i].Probability > ranking[j].Probability
	})
	return ranking
}

// ParseVocabulary reads a label list, either a JSON array of strings or one
// label per line.
func ParseVocabulary(data []byte) ([]string, error) {
	data = bytes.TrimSpace(bytes.TrimPrefix(bytes.TrimSpace(data), []byte("\ufeff")))
	if len(data) == 0 {
		return nil, errors.New("vocabulary is empty")
	}

	var labels []string
	if data[0] == '[' {
		if err := json.Unmarshal(data, &labels); err != nil {
			return nil, fmt.Errorf("decode vocabulary: %w", err)
		}
	} else {
		for _, line := range strings.Split(string(data), "\n") {
			if label := strings.TrimSpace(line); label != "" {
				labels = append(labels, label)
			}
		}
	}

	if len(labels) == 0 {
		return nil, errors.New("vocabulary is empty")
	}
	return labels, nil
}
