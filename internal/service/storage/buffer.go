package storage

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/disintegration/imaging"

	"visiondash/internal/config"
	"visiondash/internal/logger"
	"visiondash/internal/model"
	"visiondash/internal/repository"
)

// RunBufferLimit limits how many runs are held in memory between flushes.
const RunBufferLimit = 50

// BufferService buffers completed runs in memory and periodically writes
// their annotated images to disk and their rows to the history database.
type BufferService struct {
	runsDir       string
	interval      time.Duration
	runs          []*model.RunResult
	mu            sync.Mutex
	logger        *logger.Logger
	runRepo       repository.RunRepository
	detectionRepo repository.DetectionRepository
}

// NewBufferService creates a new BufferService writing into HISTORY_DIR.
func NewBufferService(config *config.Config, logger *logger.Logger, runRepo repository.RunRepository, detectionRepo repository.DetectionRepository) *BufferService {
	interval := time.Duration(config.HistoryFlushInterval) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &BufferService{
		runsDir:       config.HistoryDirectory,
		interval:      interval,
		runs:          make([]*model.RunResult, 0),
		logger:        logger,
		runRepo:       runRepo,
		detectionRepo: detectionRepo,
	}
}

// Run flushes on every tick until ctx is done, then flushes once more.
func (s *BufferService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Flush()
		case <-ctx.Done():
			s.Flush()
			return
		}
	}
}

// Add queues a completed run. Runs beyond RunBufferLimit are dropped until
// the next flush.
func (s *BufferService) Add(result *model.RunResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.runs) >= RunBufferLimit {
		s.logger.Warning("Run buffer full (%d), dropping run %s", RunBufferLimit, result.ID)
		return
	}
	s.runs = append(s.runs, result)
	s.logger.Info("Run buffer size: %d/%d", len(s.runs), RunBufferLimit)
}

// Pending returns the number of buffered runs.
func (s *BufferService) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.runs)
}

// Flush writes buffered runs and clears the buffer. It returns how many runs
// were stored. The buffer is swapped out first so Add never waits on disk or
// database writes.
func (s *BufferService) Flush() int {
	if err := os.MkdirAll(s.runsDir, 0755); err != nil {
		s.logger.Error("Error creating directory: %v", err)
		return 0
	}

	s.mu.Lock()
	pending := s.runs
	s.runs = make([]*model.RunResult, 0, len(pending))
	s.mu.Unlock()

	if len(pending) == 0 {
		return 0
	}

	savedCount := 0
	for _, result := range pending {
		filename := result.CreatedAt.Format("2006-01-02_15-04-05") + "_" + result.ID + ".jpg"
		fullpath := filepath.Join(s.runsDir, filename)

		if err := imaging.Save(result.Annotated, fullpath, imaging.JPEGQuality(90)); err != nil {
			s.logger.Error("Error saving image %s: %v", filename, err)
			continue
		}

		run := &model.Run{
			ID:         result.ID,
			Filename:   result.Filename,
			Label:      result.Classification.Label,
			Confidence: result.Classification.Confidence,
			ImagePath:  fullpath,
			Width:      result.Width(),
			Height:     result.Height(),
			CreatedAt:  result.CreatedAt,
		}
		if err := s.runRepo.Insert(run); err != nil {
			s.logger.Error("Error saving run to database %s: %v", result.ID, err)
			continue
		}

		if len(result.Detections) > 0 {
			rows := make([]model.RunDetection, 0, len(result.Detections))
			for _, det := range result.Detections {
				rows = append(rows, model.RunDetection{
					RunID:      result.ID,
					Label:      det.Label,
					Confidence: det.Confidence,
					XMin:       det.Box.XMin,
					YMin:       det.Box.YMin,
					XMax:       det.Box.XMax,
					YMax:       det.Box.YMax,
					Color:      det.Color,
				})
			}
			if err := s.detectionRepo.InsertBatch(rows); err != nil {
				s.logger.Error("Error saving detections to database: %v", err)
			}
		}

		savedCount++
	}

	s.logger.Info("Flushed %d runs to history", savedCount)
	return savedCount
}
