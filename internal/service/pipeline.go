package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/google/uuid"

	"visiondash/internal/config"
	"visiondash/internal/dto"
	"visiondash/internal/logger"
	"visiondash/internal/model"
	"visiondash/internal/service/ai"
	"visiondash/internal/service/annotate"
)

// ErrNoUpload is returned when a run is triggered before anything was uploaded.
var ErrNoUpload = errors.New("no image uploaded")

// ErrModelUploadDisabled is returned by ReplaceDetector when MODEL_UPLOAD_ENABLED is off.
var ErrModelUploadDisabled = errors.New("model upload is disabled")

// Detector is the detection adapter as the pipeline uses it.
type Detector interface {
	Detect(img *image.RGBA, threshold float64) ([]model.Detection, error)
	Threshold() float64
	Labels() ai.Labels
	Source() string
}

// Classifier is the classification adapter as the pipeline uses it.
type Classifier interface {
	Classify(img *image.RGBA) (model.Classification, error)
	Labels() ai.Labels
	Source() string
}

// Publisher receives run status events for a session.
type Publisher interface {
	Publish(session string, event dto.RunEvent)
}

// Recorder stores completed runs.
type Recorder interface {
	Add(result *model.RunResult)
}

// Pipeline runs detection and classification on an upload and annotates the
// result. It owns the loaded adapters for the lifetime of the process.
type Pipeline struct {
	cfg     *config.Config
	logger  *logger.Logger
	loader  *ai.Loader
	events  Publisher
	history Recorder

	mu            sync.RWMutex
	detector      Detector
	detectorErr   error
	classifier    Classifier
	classifierErr error
}

// NewPipeline builds a Pipeline and loads both models from the configured
// paths. A model that fails to load leaves the pipeline running with that
// adapter marked unavailable. history may be nil.
func NewPipeline(cfg *config.Config, logger *logger.Logger, loader *ai.Loader, events Publisher, history Recorder) *Pipeline {
	p := &Pipeline{
		cfg:     cfg,
		logger:  logger,
		loader:  loader,
		events:  events,
		history: history,
	}
	p.LoadModels()
	return p
}

// LoadModels (re)loads both adapters from the configured paths. Weights that
// were loaded before come from the registry without touching the disk.
func (p *Pipeline) LoadModels() {
	detector, detErr := p.loader.Detector(p.cfg.DetectionModelPath, p.cfg.DetectionConfigPath, p.cfg.DetectionLabelsPath, p.detectorConfig())
	classifier, clsErr := p.loader.Classifier(p.cfg.ClassificationModelPath, p.cfg.ClassificationLabelsPath, p.cfg.ClassificationInputSize)

	p.mu.Lock()
	defer p.mu.Unlock()

	if detErr != nil {
		p.logger.Error("Detection model unavailable: %v", detErr)
		p.detector, p.detectorErr = nil, detErr
	} else {
		p.logger.Info("Detection model %s loaded with %d labels", detector.Source(), len(detector.Labels()))
		p.detector, p.detectorErr = detector, nil
	}

	if clsErr != nil {
		p.logger.Error("Classification model unavailable: %v", clsErr)
		p.classifier, p.classifierErr = nil, clsErr
	} else {
		p.logger.Info("Classification model %s loaded with %d labels", classifier.Source(), len(classifier.Labels()))
		p.classifier, p.classifierErr = classifier, nil
	}
}

func (p *Pipeline) detectorConfig() ai.DetectorConfig {
	return ai.DetectorConfig{
		InputSize: p.cfg.DetectionInputSize,
		Threshold: p.cfg.DetectionThreshold,
		IoU:       p.cfg.DetectionIoU,
	}
}

// Ready reports whether both adapters are loaded. When not, the error names
// the first missing one.
func (p *Pipeline) Ready() (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.readyLocked()
}

func (p *Pipeline) readyLocked() (bool, error) {
	if p.detector == nil {
		if p.detectorErr != nil {
			return false, p.detectorErr
		}
		return false, &model.ModelUnavailableError{Model: "detection", Err: errors.New("not loaded")}
	}
	if p.classifier == nil {
		if p.classifierErr != nil {
			return false, p.classifierErr
		}
		return false, &model.ModelUnavailableError{Model: "classification", Err: errors.New("not loaded")}
	}
	return true, nil
}

// Run processes upload with the detector's default threshold.
func (p *Pipeline) Run(ctx context.Context, sessionID string, upload *model.Upload) (*model.RunResult, error) {
	return p.RunWithThreshold(ctx, sessionID, upload, 0)
}

// RunWithThreshold detects and classifies concurrently, waits for both and
// annotates the original bitmap with exactly the detections returned. A
// threshold outside (0,1] means the detector's default.
func (p *Pipeline) RunWithThreshold(ctx context.Context, sessionID string, upload *model.Upload, threshold float64) (*model.RunResult, error) {
	if upload == nil || upload.Bitmap == nil {
		return nil, ErrNoUpload
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	if ok, err := p.readyLocked(); !ok {
		p.mu.RUnlock()
		p.fail(sessionID, err)
		return nil, err
	}
	detector, classifier := p.detector, p.classifier
	p.mu.RUnlock()

	if threshold <= 0 || threshold > 1 {
		threshold = detector.Threshold()
	}

	p.publish(sessionID, dto.RunEvent{Type: dto.EventProcessing, Message: upload.Filename})
	start := time.Now()

	var (
		wg             sync.WaitGroup
		detections     []model.Detection
		detErr         error
		classification model.Classification
		clsErr         error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer recoverInference("detection", &detErr)
		detections, detErr = detector.Detect(upload.Bitmap, threshold)
	}()
	go func() {
		defer wg.Done()
		defer recoverInference("classification", &clsErr)
		classification, clsErr = classifier.Classify(upload.Bitmap)
	}()
	wg.Wait()

	if err := errors.Join(detErr, clsErr); err != nil {
		p.fail(sessionID, err)
		return nil, err
	}

	result := &model.RunResult{
		ID:             uuid.NewString(),
		UploadID:       upload.ID,
		Filename:       upload.Filename,
		Classification: classification,
		Detections:     detections,
		Original:       upload.Bitmap,
		Annotated:      annotate.Annotate(upload.Bitmap, detections),
		Elapsed:        time.Since(start),
		CreatedAt:      time.Now(),
	}

	p.logger.Info("Run %s on %s: %s (%.2f), %d objects in %s",
		result.ID, result.Filename, classification.Label, classification.Confidence, len(detections), result.Elapsed)

	if p.history != nil {
		p.history.Add(result)
	}
	p.publish(sessionID, dto.RunEvent{
		Type:    dto.EventDone,
		RunID:   result.ID,
		Label:   classification.Label,
		Objects: len(detections),
	})
	return result, nil
}

// recoverInference turns a panic inside an adapter into an InferenceError so
// a malformed model output fails the run instead of the process.
func recoverInference(name string, err *error) {
	if r := recover(); r != nil {
		*err = &model.InferenceError{Model: name, Err: fmt.Errorf("panic: %v", r)}
	}
}

func (p *Pipeline) fail(sessionID string, err error) {
	p.logger.Error("Run failed: %v", err)
	p.publish(sessionID, dto.RunEvent{Type: dto.EventFailed, Message: err.Error()})
}

func (p *Pipeline) publish(sessionID string, event dto.RunEvent) {
	if p.events != nil && sessionID != "" {
		p.events.Publish(sessionID, event)
	}
}

// ReplaceDetector loads uploaded detection weights and, on success, makes
// them the active detector. The vocabulary of the current detector (or
// DETECTION_LABELS_PATH) is reused. On failure the current detector stays.
func (p *Pipeline) ReplaceDetector(weights []byte, filename string) error {
	if !p.cfg.ModelUploadEnabled {
		return ErrModelUploadDisabled
	}

	labels, err := p.uploadLabels()
	if err != nil {
		return &model.ModelUnavailableError{Model: "detection", Path: filename, Err: err}
	}

	detector, err := p.loader.DetectorFromBytes(weights, filename, p.cfg.TempDirectory, labels, p.detectorConfig())
	if err != nil {
		p.logger.Error("Uploaded detection weights %s rejected: %v", filename, err)
		return err
	}

	p.mu.Lock()
	p.detector, p.detectorErr = detector, nil
	p.mu.Unlock()

	p.logger.Info("Detection model replaced with %s", filename)
	return nil
}

func (p *Pipeline) uploadLabels() (ai.Labels, error) {
	p.mu.RLock()
	current := p.detector
	p.mu.RUnlock()

	if current != nil && len(current.Labels()) > 0 {
		return current.Labels(), nil
	}
	if p.cfg.DetectionLabelsPath != "" {
		return ai.LoadLabels(p.cfg.DetectionLabelsPath)
	}
	return nil, fmt.Errorf("no label vocabulary available for uploaded weights")
}

// Status reports adapter availability.
func (p *Pipeline) Status() dto.StatusResponse {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ready, _ := p.readyLocked()
	status := dto.StatusResponse{
		Ready:          ready,
		Backend:        p.cfg.InferenceBackend,
		Threshold:      p.cfg.DetectionThreshold,
		LoadedModels:   p.loader.Keys(),
		HistoryEnabled: p.history != nil,
	}

	if p.detector != nil {
		status.Detection = dto.ModelStatus{Available: true, Source: p.detector.Source(), Labels: p.detector.Labels()}
		status.Threshold = p.detector.Threshold()
	} else {
		status.Detection = dto.ModelStatus{Error: errorText(p.detectorErr, "not loaded")}
	}

	if p.classifier != nil {
		status.Classification = dto.ModelStatus{Available: true, Source: p.classifier.Source(), Labels: p.classifier.Labels()}
	} else {
		status.Classification = dto.ModelStatus{Error: errorText(p.classifierErr, "not loaded")}
	}
	return status
}

func errorText(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	return err.Error()
}
