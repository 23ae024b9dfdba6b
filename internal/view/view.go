package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"visiondash/internal/model"
	"visiondash/internal/service/session"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer executes the embedded page templates.
type Renderer struct {
	templates *template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Renderer{templates: tmpl}, nil
}

// Render writes the named template. Output is buffered so a template error
// never leaves a half-written page.
func (r *Renderer) Render(w http.ResponseWriter, name string, data interface{}) error {
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err := buf.WriteTo(w)
	return err
}

// Page carries what every page needs.
type Page struct {
	Title       string
	Accent      string
	AuthEnabled bool
	Error       string
}

// UploadView describes the pending upload.
type UploadView struct {
	ID       string
	Filename string
	Width    int
	Height   int
}

// DetectionView is one row of the detection list.
type DetectionView struct {
	Label   string
	Percent string
	Color   string
	Box     model.Box
}

// ResultView is the last RunResult as the dashboard shows it.
type ResultView struct {
	ID         string
	Filename   string
	Label      string
	Percent    string
	Width      int
	Height     int
	ElapsedMs  int64
	Detections []DetectionView
}

// Dashboard is the data for the main page.
type Dashboard struct {
	Page
	Ready              bool
	ModelError         string
	Backend            string
	Threshold          float64
	DetectionSource    string
	ClassifierSource   string
	Upload             *UploadView
	Result             *ResultView
	ModelUploadEnabled bool
	HistoryEnabled     bool
}

// NewUploadView converts the pending upload, nil when there is none.
func NewUploadView(upload *model.Upload) *UploadView {
	if upload == nil || upload.Bitmap == nil {
		return nil
	}
	return &UploadView{
		ID:       upload.ID,
		Filename: upload.Filename,
		Width:    upload.Bitmap.Bounds().Dx(),
		Height:   upload.Bitmap.Bounds().Dy(),
	}
}

// NewResultView converts the stored result. It is nil when there is none or
// when it belongs to an earlier upload: a fresh upload shows only its preview
// until it is run.
func NewResultView(st session.State) *ResultView {
	result := st.Result
	if result == nil {
		return nil
	}
	if st.Upload != nil && st.Upload.ID != result.UploadID {
		return nil
	}

	detections := make([]DetectionView, 0, len(result.Detections))
	for _, d := range result.Detections {
		detections = append(detections, DetectionView{
			Label:   d.Label,
			Percent: d.Percent(),
			Color:   d.Color,
			Box:     d.Box,
		})
	}

	return &ResultView{
		ID:         result.ID,
		Filename:   result.Filename,
		Label:      result.Classification.Label,
		Percent:    result.Classification.Percent(),
		Width:      result.Width(),
		Height:     result.Height(),
		ElapsedMs:  result.Elapsed.Milliseconds(),
		Detections: detections,
	}
}
