package service

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"visiondash/internal/config"
	"visiondash/internal/dto"
	"visiondash/internal/logger"
	"visiondash/internal/model"
	"visiondash/internal/service/ai"
)

type stubNet struct {
	out    ai.Tensor
	err    error
	panics bool
}

func (n *stubNet) Forward(ai.Tensor) (ai.Tensor, error) {
	if n.panics {
		panic("index out of range")
	}
	return n.out, n.err
}

func (n *stubNet) Close() error { return nil }

// yoloHead is a [1,6,2] output for two classes: one confident Cheetah in the
// middle of a 640x640 input and one low-score candidate.
var yoloHead = ai.Tensor{
	Shape: []int{1, 6, 2},
	Data: []float32{
		320, 10, // cx
		320, 10, // cy
		128, 5, // w
		64, 5, // h
		0.9, 0.1, // Cheetah
		0.05, 0.1, // Lion
	},
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []dto.RunEvent
}

func (r *recordingPublisher) Publish(_ string, e dto.RunEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingPublisher) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type recordingHistory struct {
	results []*model.RunResult
}

func (r *recordingHistory) Add(result *model.RunResult) { r.results = append(r.results, result) }

type fixture struct {
	cfg      *config.Config
	opens    map[string]int
	nets     map[string]*stubNet
	events   *recordingPublisher
	history  *recordingHistory
	pipeline *Pipeline
}

func newFixture(t *testing.T, withClassifier bool) *fixture {
	t.Helper()
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		return path
	}

	cfg := &config.Config{
		InferenceBackend:        config.BackendONNX,
		DetectionModelPath:      write("detector.onnx", "det"),
		DetectionInputSize:      640,
		DetectionThreshold:      0.25,
		DetectionIoU:            0.45,
		ClassificationModelPath: filepath.Join(dir, "classifier.onnx"),
		ClassificationInputSize: 224,
		ModelUploadEnabled:      true,
		TempDirectory:           filepath.Join(dir, "tmp"),
	}
	write("detector.txt", "Cheetah\nLion\n")
	if withClassifier {
		write("classifier.onnx", "cls")
		write("classifier.json", `["Cheetah", "Lion"]`)
	}

	f := &fixture{
		cfg:   cfg,
		opens: make(map[string]int),
		nets: map[string]*stubNet{
			"detector.onnx":   {out: yoloHead},
			"classifier.onnx": {out: ai.Tensor{Shape: []int{1, 2}, Data: []float32{0.2, 0.8}}},
		},
		events:  &recordingPublisher{},
		history: &recordingHistory{},
	}
	opener := func(weights, _ string) (ai.Net, error) {
		name := filepath.Base(weights)
		f.opens[name]++
		if strings.HasPrefix(name, "upload-") {
			return &stubNet{out: ai.Tensor{Shape: []int{1, 6, 1}, Data: []float32{100, 100, 20, 20, 0.1, 0.7}}}, nil
		}
		return f.nets[name], nil
	}

	loader := ai.NewLoader(ai.NewRegistry(), opener)
	f.pipeline = NewPipeline(cfg, logger.NewNop(), loader, f.events, f.history)
	return f
}

func testUpload() *model.Upload {
	return &model.Upload{ID: "u1", Filename: "savanna.png", Bitmap: image.NewRGBA(image.Rect(0, 0, 640, 480))}
}

func TestPipeline_Run(t *testing.T) {
	f := newFixture(t, true)

	result, err := f.pipeline.Run(context.Background(), "s1", testUpload())
	require.NoError(t, err)

	require.Equal(t, model.Classification{Label: "Lion", Confidence: float64(float32(0.8))}, result.Classification)
	require.Len(t, result.Detections, 1)
	det := result.Detections[0]
	require.Equal(t, "Cheetah", det.Label)
	require.Equal(t, model.Box{XMin: 256, YMin: 216, XMax: 384, YMax: 264}, det.Box)
	require.True(t, det.Box.Within(result.Width(), result.Height()))

	require.Equal(t, result.Original.Bounds(), result.Annotated.Bounds())
	require.NotEqual(t, result.Original.Pix, result.Annotated.Pix)
	require.Equal(t, "savanna.png", result.Filename)
	require.NotEmpty(t, result.ID)

	require.Equal(t, []string{dto.EventProcessing, dto.EventDone}, f.events.types())
	require.Len(t, f.history.results, 1)
	require.Same(t, result, f.history.results[0])
}

func TestPipeline_ModelsLoadOnce(t *testing.T) {
	f := newFixture(t, true)
	for i := 0; i < 3; i++ {
		_, err := f.pipeline.Run(context.Background(), "s1", testUpload())
		require.NoError(t, err)
	}
	f.pipeline.LoadModels()

	require.Equal(t, 1, f.opens["detector.onnx"])
	require.Equal(t, 1, f.opens["classifier.onnx"])
}

func TestPipeline_ClassifierUnavailable(t *testing.T) {
	f := newFixture(t, false)

	ready, err := f.pipeline.Ready()
	require.False(t, ready)
	var unavailable *model.ModelUnavailableError
	require.ErrorAs(t, err, &unavailable)
	require.Equal(t, "classification", unavailable.Model)

	result, err := f.pipeline.Run(context.Background(), "s1", testUpload())
	require.Nil(t, result)
	require.ErrorAs(t, err, &unavailable)
	require.Equal(t, []string{dto.EventFailed}, f.events.types())
	require.Empty(t, f.history.results)

	status := f.pipeline.Status()
	require.False(t, status.Ready)
	require.True(t, status.Detection.Available)
	require.False(t, status.Classification.Available)
	require.NotEmpty(t, status.Classification.Error)
}

func TestPipeline_InferenceErrorSurfaces(t *testing.T) {
	f := newFixture(t, true)
	f.nets["classifier.onnx"].err = errors.New("bad input")

	_, err := f.pipeline.Run(context.Background(), "s1", testUpload())
	var inference *model.InferenceError
	require.ErrorAs(t, err, &inference)
	require.Equal(t, "classification", inference.Model)
	require.Empty(t, f.history.results)
}

func TestPipeline_AdapterPanicBecomesInferenceError(t *testing.T) {
	f := newFixture(t, true)
	f.nets["detector.onnx"].panics = true

	var (
		result *model.RunResult
		err    error
	)
	require.NotPanics(t, func() {
		result, err = f.pipeline.Run(context.Background(), "s1", testUpload())
	})
	require.Nil(t, result)
	var inference *model.InferenceError
	require.ErrorAs(t, err, &inference)
	require.Equal(t, "detection", inference.Model)
	require.Contains(t, err.Error(), "index out of range")
	require.Equal(t, []string{dto.EventProcessing, dto.EventFailed}, f.events.types())
	require.Empty(t, f.history.results)
}

func TestPipeline_NoUpload(t *testing.T) {
	f := newFixture(t, true)
	_, err := f.pipeline.Run(context.Background(), "s1", nil)
	require.ErrorIs(t, err, ErrNoUpload)
}

func TestPipeline_ThresholdOverride(t *testing.T) {
	f := newFixture(t, true)
	result, err := f.pipeline.RunWithThreshold(context.Background(), "s1", testUpload(), 0.95)
	require.NoError(t, err)
	require.Empty(t, result.Detections)
	require.Equal(t, result.Original.Pix, result.Annotated.Pix)
}

func TestPipeline_ReplaceDetector(t *testing.T) {
	f := newFixture(t, true)

	require.NoError(t, f.pipeline.ReplaceDetector([]byte("new weights"), "custom.onnx"))

	result, err := f.pipeline.Run(context.Background(), "s1", testUpload())
	require.NoError(t, err)
	require.Len(t, result.Detections, 1)
	require.Equal(t, "Lion", result.Detections[0].Label)
	require.Equal(t, "custom.onnx", f.pipeline.Status().Detection.Source)

	entries, err := os.ReadDir(f.cfg.TempDirectory)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestPipeline_ReplaceDetectorRejected(t *testing.T) {
	f := newFixture(t, true)

	err := f.pipeline.ReplaceDetector([]byte("x"), "weights.pt")
	var unavailable *model.ModelUnavailableError
	require.ErrorAs(t, err, &unavailable)
	require.Equal(t, "detector.onnx", f.pipeline.Status().Detection.Source)

	f.cfg.ModelUploadEnabled = false
	require.ErrorIs(t, f.pipeline.ReplaceDetector([]byte("x"), "w.onnx"), ErrModelUploadDisabled)
}
