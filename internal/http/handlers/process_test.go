package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"psdprocessor/internal/domain"
	"psdprocessor/internal/export"
	"psdprocessor/internal/infra"
	"psdprocessor/internal/intake"
	"psdprocessor/internal/storage"

	"github.com/rs/zerolog"
)

type stubResolver struct {
	path     string
	err      error
	gotJobID string
	gotReq   intake.Request
}

func (s *stubResolver) Resolve(_ context.Context, jobID string, req intake.Request) (string, error) {
	s.gotJobID = jobID
	s.gotReq = req
	if s.err != nil {
		return "", s.err
	}
	return s.path, nil
}

type stubExporter struct {
	names     []string
	err       error
	gotInput  string
	gotOutput string
	gotOpts   export.Options
}

func (s *stubExporter) Run(_ context.Context, inputPath, outputDir string, opts export.Options) ([]string, error) {
	s.gotInput = inputPath
	s.gotOutput = outputDir
	s.gotOpts = opts
	if s.err != nil {
		return nil, s.err
	}
	return s.names, nil
}

type stubMirror struct {
	err    error
	called bool
}

func (s *stubMirror) UploadAll(context.Context, string, string, []string) error {
	s.called = true
	return s.err
}

func newTestApp(t *testing.T) (*App, *stubResolver, *stubExporter) {
	t.Helper()
	root := t.TempDir()
	layout, err := storage.NewLayout(filepath.Join(root, "uploads"), filepath.Join(root, "outputs"))
	if err != nil {
		t.Fatal(err)
	}
	resolver := &stubResolver{path: "/staged/input.psd"}
	exporter := &stubExporter{names: []string{"01-red.jpg", "02-blue.jpg"}}
	app := &App{
		Config:   &infra.Config{MaxUploadBytes: 10 << 20},
		Logger:   zerolog.Nop(),
		Layout:   layout,
		Resolver: resolver,
		Exporter: exporter,
	}
	return app, resolver, exporter
}

func multipartRequest(t *testing.T, fields map[string]string, fileName, fileContent string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if fileName != "" {
		fw, err := mw.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := io.WriteString(fw, fileContent); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest("POST", "/api/process", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

type processPayload struct {
	JobID          string   `json:"job_id"`
	Status         string   `json:"status"`
	InputFile      string   `json:"input_file"`
	OutputDir      string   `json:"output_dir"`
	GeneratedFiles []string `json:"generated_files"`
	Success        bool     `json:"success"`
}

func TestProcessPSD_CompletesJobFromUpload(t *testing.T) {
	app, resolver, exporter := newTestApp(t)

	rr := httptest.NewRecorder()
	app.ProcessPSD(rr, multipartRequest(t, nil, "design.psd", "psd bytes"))

	if rr.Code != 200 {
		t.Fatalf("unexpected status code: got %d, want 200 (body %s)", rr.Code, rr.Body.String())
	}
	var payload processPayload
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.JobID == "" || payload.JobID != resolver.gotJobID {
		t.Fatalf("job_id %q does not match resolver's %q", payload.JobID, resolver.gotJobID)
	}
	if payload.Status != "completed" || !payload.Success {
		t.Fatalf("expected completed job, got status %q success %v", payload.Status, payload.Success)
	}
	if payload.InputFile != "input.psd" {
		t.Fatalf("input_file = %q, want base name input.psd", payload.InputFile)
	}
	if len(payload.GeneratedFiles) != 2 || payload.GeneratedFiles[0] != "01-red.jpg" {
		t.Fatalf("generated_files = %v", payload.GeneratedFiles)
	}
	if !strings.HasSuffix(payload.OutputDir, payload.JobID) {
		t.Fatalf("output_dir %q should end with job id %q", payload.OutputDir, payload.JobID)
	}

	if resolver.gotReq.Filename != "design.psd" || resolver.gotReq.File == nil {
		t.Fatalf("resolver saw request %+v, want staged upload", resolver.gotReq)
	}
	if resolver.gotReq.URL != "" {
		t.Fatalf("resolver saw url %q, want empty", resolver.gotReq.URL)
	}
	if exporter.gotInput != "/staged/input.psd" {
		t.Fatalf("exporter input = %q, want resolver's path", exporter.gotInput)
	}
	if exporter.gotOutput != payload.OutputDir {
		t.Fatalf("exporter output dir = %q, want %q", exporter.gotOutput, payload.OutputDir)
	}
}

func TestProcessPSD_AcceptsURLEncodedForm(t *testing.T) {
	app, resolver, exporter := newTestApp(t)

	body := strings.NewReader("url=https%3A%2F%2Fcdn.example.com%2Fdesign.psd&output_format=png&quality=80")
	req := httptest.NewRequest("POST", "/api/process", body)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()

	app.ProcessPSD(rr, req)

	if rr.Code != 200 {
		t.Fatalf("unexpected status code: got %d, want 200 (body %s)", rr.Code, rr.Body.String())
	}
	if resolver.gotReq.URL != "https://cdn.example.com/design.psd" {
		t.Fatalf("resolver saw url %q", resolver.gotReq.URL)
	}
	if resolver.gotReq.File != nil {
		t.Fatal("resolver saw a file on a url-only request")
	}
	want := export.Options{Format: "png", Quality: 80}
	if exporter.gotOpts != want {
		t.Fatalf("exporter options = %+v, want %+v", exporter.gotOpts, want)
	}
}

func TestProcessPSD_MapsResolverErrorsToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid request", fmt.Errorf("%w: no file or URL provided", domain.ErrInvalidRequest), 400},
		{"fetch failure", fmt.Errorf("%w: unexpected status 503", domain.ErrFetch), 502},
		{"processing failure", fmt.Errorf("%w: disk full", domain.ErrProcessing), 500},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			app, resolver, _ := newTestApp(t)
			resolver.err = tc.err

			rr := httptest.NewRecorder()
			app.ProcessPSD(rr, multipartRequest(t, nil, "design.psd", "psd bytes"))

			if rr.Code != tc.want {
				t.Fatalf("unexpected status code: got %d, want %d", rr.Code, tc.want)
			}
			var payload map[string]any
			if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if payload["success"] != false {
				t.Fatalf("expected success false, got %#v", payload["success"])
			}
			if msg, _ := payload["error"].(string); msg == "" {
				t.Fatal("expected an error message")
			}
		})
	}
}

func TestProcessPSD_ExporterFailureIsServerError(t *testing.T) {
	app, _, exporter := newTestApp(t)
	exporter.err = fmt.Errorf("%w: no renderable layers", domain.ErrProcessing)

	rr := httptest.NewRecorder()
	app.ProcessPSD(rr, multipartRequest(t, nil, "design.psd", "psd bytes"))

	if rr.Code != 500 {
		t.Fatalf("unexpected status code: got %d, want 500", rr.Code)
	}
}

func TestProcessPSD_RejectsOversizedBody(t *testing.T) {
	app, _, _ := newTestApp(t)
	app.Config.MaxUploadBytes = 64

	rr := httptest.NewRecorder()
	app.ProcessPSD(rr, multipartRequest(t, nil, "design.psd", strings.Repeat("x", 4096)))

	if rr.Code != 413 {
		t.Fatalf("unexpected status code: got %d, want 413", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "request body too large") {
		t.Fatalf("body = %q, want size complaint", rr.Body.String())
	}
}

func TestProcessPSD_RejectsNonIntegerQuality(t *testing.T) {
	app, _, _ := newTestApp(t)

	body := strings.NewReader("url=https%3A%2F%2Fcdn.example.com%2Fdesign.psd&quality=best")
	req := httptest.NewRequest("POST", "/api/process", body)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()

	app.ProcessPSD(rr, req)

	if rr.Code != 400 {
		t.Fatalf("unexpected status code: got %d, want 400", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "quality must be an integer") {
		t.Fatalf("body = %q, want quality complaint", rr.Body.String())
	}
}

func TestProcessPSD_IsolatesJobsAcrossRequests(t *testing.T) {
	app, _, _ := newTestApp(t)

	var payloads [2]processPayload
	for i := range payloads {
		rr := httptest.NewRecorder()
		app.ProcessPSD(rr, multipartRequest(t, nil, "design.psd", "psd bytes"))
		if rr.Code != 200 {
			t.Fatalf("request %d: unexpected status code: got %d, want 200", i, rr.Code)
		}
		if err := json.NewDecoder(rr.Body).Decode(&payloads[i]); err != nil {
			t.Fatalf("request %d: decode response: %v", i, err)
		}
	}

	if payloads[0].JobID == payloads[1].JobID {
		t.Fatalf("both requests got job id %q", payloads[0].JobID)
	}
	if payloads[0].OutputDir == payloads[1].OutputDir {
		t.Fatalf("both requests got output dir %q", payloads[0].OutputDir)
	}
}

func TestProcessPSD_MirrorFailureDoesNotFailJob(t *testing.T) {
	app, _, _ := newTestApp(t)
	mirror := &stubMirror{err: errors.New("bucket offline")}
	app.Mirror = mirror

	rr := httptest.NewRecorder()
	app.ProcessPSD(rr, multipartRequest(t, nil, "design.psd", "psd bytes"))

	if rr.Code != 200 {
		t.Fatalf("unexpected status code: got %d, want 200 (body %s)", rr.Code, rr.Body.String())
	}
	if !mirror.called {
		t.Fatal("mirror was never invoked")
	}
}
