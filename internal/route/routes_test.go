package route

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"visiondash/internal/config"
	"visiondash/internal/dto"
	"visiondash/internal/logger"
	"visiondash/internal/middleware"
	"visiondash/internal/model"
	"visiondash/internal/repository/sqlite"
	"visiondash/internal/service"
	"visiondash/internal/service/ai"
	"visiondash/internal/service/session"
	"visiondash/internal/service/websocket"
	"visiondash/internal/view"
)

type stubNet struct{ out ai.Tensor }

func (n *stubNet) Forward(ai.Tensor) (ai.Tensor, error) { return n.out, nil }
func (n *stubNet) Close() error                         { return nil }

// one Cheetah centred in a 640x640 input, classes Cheetah and Lion
var detectorOut = ai.Tensor{
	Shape: []int{1, 6, 1},
	Data:  []float32{320, 320, 128, 64, 0.9, 0.05},
}

var classifierOut = ai.Tensor{Shape: []int{1, 2}, Data: []float32{0.2, 0.8}}

type testServer struct {
	handler http.Handler
	cfg     *config.Config
	log     *logger.Logger
	cookies []*http.Cookie
}

func newTestServer(t *testing.T, mutate func(*config.Config)) *testServer {
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
		ClassificationModelPath: write("classifier.onnx", "cls"),
		ClassificationInputSize: 224,
		MaxUploadMB:             1,
		ModelUploadEnabled:      true,
		TempDirectory:           filepath.Join(dir, "tmp"),
		LogDirectory:            filepath.Join(dir, "logs"),
		Title:                   "Vision Dashboard",
		Accent:                  "#f5b301",
	}
	write("detector.txt", "Cheetah\nLion\n")
	write("classifier.txt", "Cheetah\nLion\n")
	if mutate != nil {
		mutate(cfg)
	}

	opener := func(weights, _ string) (ai.Net, error) {
		if filepath.Base(weights) == "classifier.onnx" {
			return &stubNet{out: classifierOut}, nil
		}
		return &stubNet{out: detectorOut}, nil
	}

	log := logger.NewLogger(cfg)
	t.Cleanup(func() { log.Close() })

	hub := websocket.NewHubService(log)
	renderer, err := view.NewRenderer()
	require.NoError(t, err)

	deps := Deps{
		Config:   cfg,
		Logger:   log,
		Pipeline: service.NewPipeline(cfg, log, ai.NewLoader(ai.NewRegistry(), opener), hub, nil),
		Sessions: session.NewStore(time.Hour),
		Hub:      hub,
		Renderer: renderer,
	}
	if cfg.HistoryEnabled() {
		db, err := sqlite.New(cfg.HistoryDBPath)
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })
		deps.RunRepo = sqlite.NewRunRepository(db)
		deps.DetectionRepo = sqlite.NewDetectionRepository(db)
	}

	return &testServer{handler: SetupRoutes(deps), cfg: cfg, log: log}
}

// do sends r with the cookies collected so far and keeps the new ones.
func (s *testServer) do(r *http.Request) *httptest.ResponseRecorder {
	for _, c := range s.cookies {
		r.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, r)
	for _, c := range w.Result().Cookies() {
		s.setCookie(c)
	}
	return w
}

func (s *testServer) setCookie(c *http.Cookie) {
	for i, existing := range s.cookies {
		if existing.Name == c.Name {
			s.cookies[i] = c
			return
		}
	}
	s.cookies = append(s.cookies, c)
}

func (s *testServer) get(path string) *httptest.ResponseRecorder {
	return s.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (s *testServer) postFile(t *testing.T, path, field, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, path, &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return s.do(r)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func TestDashboard_IssuesSession(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.get("/")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Vision Dashboard")
	require.Regexp(t, `id="run-button"\s+disabled`, w.Body.String())

	require.Len(t, s.cookies, 1)
	require.Equal(t, session.CookieName, s.cookies[0].Name)
}

func TestUploadThenRun(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.postFile(t, "/upload", "image", "savanna.png", pngBytes(t, 640, 480))
	require.Equal(t, http.StatusSeeOther, w.Code)

	w = s.get("/image/preview")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "image/png", w.Header().Get("Content-Type"))

	// nothing has been processed yet
	require.Equal(t, http.StatusNotFound, s.get("/image/annotated").Code)
	body := s.get("/").Body.String()
	require.Contains(t, body, "Preview: savanna.png (640&times;480)")
	require.NotRegexp(t, `id="run-button"\s+disabled`, body)

	w = s.do(httptest.NewRequest(http.MethodPost, "/run", nil))
	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Equal(t, "/", w.Header().Get("Location"))

	body = s.get("/").Body.String()
	require.Contains(t, body, "Result: savanna.png")
	require.Contains(t, body, "Lion")
	require.Contains(t, body, "80.0%")
	require.Contains(t, body, "Cheetah")
	require.Contains(t, body, "(256, 216) &ndash; (384, 264)")

	w = s.get("/image/annotated")
	require.Equal(t, http.StatusOK, w.Code)
	annotated, err := png.Decode(w.Body)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 640, 480), annotated.Bounds())

	require.Contains(t, body, `src="/image/original?v=`)
	w = s.get("/image/original")
	require.Equal(t, http.StatusOK, w.Code)
	original, err := png.Decode(w.Body)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 640, 480), original.Bounds())

	// a new upload shows only its preview until it is run
	s.postFile(t, "/upload", "image", "next.png", pngBytes(t, 32, 32))
	body = s.get("/").Body.String()
	require.Contains(t, body, "Preview: next.png")
	require.NotContains(t, body, "Result: savanna.png")
	require.NotContains(t, body, "/image/annotated")
}

func TestUpload_DecodeErrorShowsBanner(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.postFile(t, "/upload", "image", "notes.txt", []byte("hello"))
	require.Equal(t, http.StatusSeeOther, w.Code)

	body := s.get("/").Body.String()
	require.Contains(t, body, `id="run-error"`)
	require.Contains(t, body, "Could not read")
	require.Equal(t, http.StatusNotFound, s.get("/image/preview").Code)
}

func TestUpload_TooLarge(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.postFile(t, "/api/analyze", "image", "big.png", bytes.Repeat([]byte{0}, 2<<20))
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestRun_WithoutUpload(t *testing.T) {
	s := newTestServer(t, nil)
	s.get("/")

	w := s.do(httptest.NewRequest(http.MethodPost, "/run", nil))
	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Contains(t, s.get("/").Body.String(), "Upload an image before running detection.")
}

func TestImage_NotFound(t *testing.T) {
	s := newTestServer(t, nil)

	require.Equal(t, http.StatusNotFound, s.get("/image/preview").Code)
	s.get("/")
	require.Equal(t, http.StatusNotFound, s.get("/image/thumbnail").Code)
}

func TestAnalyzeAPI(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.postFile(t, "/api/analyze", "image", "savanna.png", pngBytes(t, 640, 480))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp dto.AnalyzeResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Equal(t, "savanna.png", resp.Filename)
	require.Equal(t, 640, resp.Width)
	require.Equal(t, "Lion", resp.Classification.Label)
	require.Len(t, resp.Detections, 1)
	require.Equal(t, model.Box{XMin: 256, YMin: 216, XMax: 384, YMax: 264}, resp.Detections[0].Box)
	require.NotEmpty(t, resp.AnnotatedPNG)
}

func TestAnalyzeAPI_Errors(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.postFile(t, "/api/analyze", "image", "notes.gif", []byte("GIF89a"))
	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp dto.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Equal(t, "decode", resp.Kind)

	s = newTestServer(t, func(c *config.Config) { c.ClassificationModelPath = filepath.Join(t.TempDir(), "missing.onnx") })
	w = s.postFile(t, "/api/analyze", "image", "savanna.png", pngBytes(t, 64, 48))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Equal(t, "model_unavailable", resp.Kind)
	require.Contains(t, resp.Error, "classification")
}

func TestStatusAPI(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.get("/api/status")
	require.Equal(t, http.StatusOK, w.Code)

	var status dto.StatusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
	require.True(t, status.Ready)
	require.Equal(t, config.BackendONNX, status.Backend)
	require.Equal(t, []string{"Cheetah", "Lion"}, status.Detection.Labels)
	require.False(t, status.HistoryEnabled)
}

func TestRunsAPI(t *testing.T) {
	s := newTestServer(t, nil)
	require.Equal(t, http.StatusNotFound, s.get("/api/runs").Code)

	s = newTestServer(t, func(c *config.Config) { c.HistoryDBPath = filepath.Join(t.TempDir(), "runs.db") })
	w := s.get("/api/runs?page=1&limit=10")
	require.Equal(t, http.StatusOK, w.Code)

	var data dto.RunsData
	require.NoError(t, json.NewDecoder(w.Body).Decode(&data))
	require.Empty(t, data.Runs)
	require.Equal(t, 10, data.Limit)
	require.Equal(t, 0, data.Length)
}

func TestModelUpload(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.postFile(t, "/models/detection", "weights", "notes.txt", []byte("weights"))
	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Contains(t, s.get("/").Body.String(), `id="run-error"`)

	s.postFile(t, "/models/detection", "weights", "custom.onnx", []byte("weights"))
	body := s.get("/").Body.String()
	require.NotContains(t, body, `id="run-error"`)
	require.Contains(t, body, "custom.onnx")

	s = newTestServer(t, func(c *config.Config) { c.ModelUploadEnabled = false })
	s.postFile(t, "/models/detection", "weights", "custom.onnx", []byte("weights"))
	require.Contains(t, s.get("/").Body.String(), "Uploading model weights is disabled.")
}

func TestAuth(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.Password = "secret" })

	w := s.get("/")
	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Equal(t, "/login", w.Header().Get("Location"))
	require.Equal(t, http.StatusUnauthorized, s.get("/api/status").Code)
	require.Equal(t, http.StatusOK, s.get("/login").Code)

	login := func(password string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("password="+password))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return s.do(r)
	}

	w = login("wrong")
	require.Equal(t, "/login?failed=1", w.Header().Get("Location"))
	require.Contains(t, s.get("/login?failed=1").Body.String(), "Invalid password")

	w = login("secret")
	require.Equal(t, "/", w.Header().Get("Location"))
	require.Equal(t, http.StatusOK, s.get("/").Code)
	require.Equal(t, http.StatusOK, s.get("/api/status").Code)

	s.get("/auth/logout")
	for _, c := range s.cookies {
		if c.Name == middleware.AuthCookie {
			require.Empty(t, c.Value)
		}
	}
	require.Equal(t, http.StatusSeeOther, s.get("/").Code)
}

func TestLogs(t *testing.T) {
	s := newTestServer(t, nil)
	s.log.Info("hello from the test")

	w := s.get("/logs/info")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "hello from the test")

	w = s.do(httptest.NewRequest(http.MethodPost, "/logs/info/clear", nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	require.Equal(t, http.StatusMethodNotAllowed, s.get("/logs/info/clear").Code)
}
