package nutrition

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"nutrilens/internal/media"
	"nutrilens/internal/web"
)

type stubAnalyzer struct {
	result InferenceResult
	err    error
	calls  int
}

func (s *stubAnalyzer) Infer(_ context.Context, _ string) (InferenceResult, error) {
	s.calls++
	return s.result, s.err
}

func testRenderer(t *testing.T) *web.Renderer {
	t.Helper()
	dir := t.TempDir()
	page := `{{if .Data}}items:{{range .Data.Items}}[{{.Name}}]{{end}} total:{{.Data.Totals.Calories}}{{with .Data.PhotoURL}} photo:{{.}}{{end}}{{else}}upload form{{end}}`
	if err := os.WriteFile(filepath.Join(dir, "nutrition.html"), []byte(page), 0o644); err != nil {
		t.Fatal(err)
	}
	r, err := web.NewRenderer(dir)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func frameRequest(t *testing.T, body any) *http.Request {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/analyze_nutrition_frame", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeFrame(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return payload
}

func TestFrameMissingImage(t *testing.T) {
	analyzer := &stubAnalyzer{}
	h := Handler{Analyzer: analyzer}

	rec := httptest.NewRecorder()
	h.AnalyzeFrame(rec, frameRequest(t, map[string]string{}))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	payload := decodeFrame(t, rec)
	if payload["ok"] != false || payload["error"] != "image_b64 missing" {
		t.Fatalf("unexpected payload: %v", payload)
	}
	if analyzer.calls != 0 {
		t.Fatalf("analyzer invoked %d times, want 0", analyzer.calls)
	}
}

func TestFrameUndecodableImage(t *testing.T) {
	h := Handler{Analyzer: &stubAnalyzer{}}

	rec := httptest.NewRecorder()
	h.AnalyzeFrame(rec, frameRequest(t, map[string]string{"image_b64": "!!not-base64!!"}))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestFrameSuccess(t *testing.T) {
	analyzer := &stubAnalyzer{result: InferenceResult{
		IsFood: true,
		Items:  []Item{{Name: "apple", Calories: 95, Protein: 0.5, Carbs: 25, Fat: 0.3}},
	}}
	h := Handler{Analyzer: analyzer}

	imageB64 := "data:image/png;base64," + base64.StdEncoding.EncodeToString(testImagePNG(t))
	rec := httptest.NewRecorder()
	h.AnalyzeFrame(rec, frameRequest(t, map[string]string{"image_b64": imageB64}))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	payload := decodeFrame(t, rec)
	if payload["ok"] != true || payload["is_food"] != true {
		t.Fatalf("unexpected payload: %v", payload)
	}
	totals := payload["totals"].(map[string]any)
	if totals["calories"].(float64) != 95 {
		t.Errorf("calories = %v, want 95", totals["calories"])
	}
	if totals["protein"].(float64) != 0.5 {
		t.Errorf("protein = %v, want 0.5", totals["protein"])
	}
}

func TestFrameNotFood(t *testing.T) {
	h := Handler{Analyzer: &stubAnalyzer{result: InferenceResult{IsFood: false}}}

	imageB64 := base64.StdEncoding.EncodeToString(testImagePNG(t))
	rec := httptest.NewRecorder()
	h.AnalyzeFrame(rec, frameRequest(t, map[string]string{"image_b64": imageB64}))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	payload := decodeFrame(t, rec)
	if payload["ok"] != true || payload["is_food"] != false {
		t.Fatalf("unexpected payload: %v", payload)
	}
	if items := payload["items"].([]any); len(items) != 0 {
		t.Errorf("items = %v, want empty", items)
	}
	totals := payload["totals"].(map[string]any)
	for _, field := range []string{"calories", "protein", "carbs", "fat"} {
		if totals[field].(float64) != 0 {
			t.Errorf("totals.%s = %v, want 0", field, totals[field])
		}
	}
}

func TestFrameAccessDenied(t *testing.T) {
	h := Handler{Analyzer: &stubAnalyzer{err: fmt.Errorf("%w: model_not_found", ErrModelAccess)}}

	imageB64 := base64.StdEncoding.EncodeToString(testImagePNG(t))
	rec := httptest.NewRecorder()
	h.AnalyzeFrame(rec, frameRequest(t, map[string]string{"image_b64": imageB64}))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	payload := decodeFrame(t, rec)
	if payload["ok"] != false {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestFrameRemoteFault(t *testing.T) {
	h := Handler{Analyzer: &stubAnalyzer{err: fmt.Errorf("vision inference: connection refused")}}

	imageB64 := base64.StdEncoding.EncodeToString(testImagePNG(t))
	rec := httptest.NewRecorder()
	h.AnalyzeFrame(rec, frameRequest(t, map[string]string{"image_b64": imageB64}))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestFrameUnconfigured(t *testing.T) {
	h := Handler{} // nil analyzer

	imageB64 := base64.StdEncoding.EncodeToString(testImagePNG(t))
	rec := httptest.NewRecorder()
	h.AnalyzeFrame(rec, frameRequest(t, map[string]string{"image_b64": imageB64}))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func uploadRequest(t *testing.T, field, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		part, err := mw.CreateFormFile(field, filename)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatal(err)
		}
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/analyze_nutrition", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func flashCookie(rec *httptest.ResponseRecorder) string {
	for _, c := range rec.Result().Cookies() {
		if c.Name == "flash" {
			return c.Value
		}
	}
	return ""
}

func TestUploadMissingFile(t *testing.T) {
	analyzer := &stubAnalyzer{}
	h := Handler{Analyzer: analyzer, Pages: testRenderer(t)}

	rec := httptest.NewRecorder()
	h.AnalyzeUpload(rec, uploadRequest(t, "", "", nil))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/nutrition" {
		t.Fatalf("redirect = %q, want /nutrition", loc)
	}
	if flashCookie(rec) == "" {
		t.Fatal("expected a flash message")
	}
	if analyzer.calls != 0 {
		t.Fatalf("analyzer invoked %d times, want 0", analyzer.calls)
	}
}

func TestUploadNotFood(t *testing.T) {
	h := Handler{
		Analyzer: &stubAnalyzer{result: InferenceResult{IsFood: false}},
		Pages:    testRenderer(t),
	}

	rec := httptest.NewRecorder()
	h.AnalyzeUpload(rec, uploadRequest(t, "food_image", "shoe.png", testImagePNG(t)))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if !strings.Contains(flashCookie(rec), "not+food") &&
		!strings.Contains(flashCookie(rec), "not%20food") {
		t.Fatalf("flash = %q, want a not-food rejection", flashCookie(rec))
	}
}

func TestUploadNoDetectedItems(t *testing.T) {
	h := Handler{
		Analyzer: &stubAnalyzer{result: InferenceResult{IsFood: true, Items: []Item{}}},
		Pages:    testRenderer(t),
	}

	rec := httptest.NewRecorder()
	h.AnalyzeUpload(rec, uploadRequest(t, "food_image", "plate.png", testImagePNG(t)))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if flashCookie(rec) == "" {
		t.Fatal("expected a flash message")
	}
}

func TestUploadSuccessRendersPage(t *testing.T) {
	h := Handler{
		Analyzer: &stubAnalyzer{result: InferenceResult{
			IsFood: true,
			Items:  []Item{{Name: "apple", Calories: 95, Protein: 0.5, Carbs: 25, Fat: 0.3}},
		}},
		Pages: testRenderer(t),
	}

	rec := httptest.NewRecorder()
	h.AnalyzeUpload(rec, uploadRequest(t, "food_image", "apple.png", testImagePNG(t)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "[apple]") || !strings.Contains(body, "total:95") {
		t.Fatalf("rendered page missing items/totals: %s", body)
	}
}

type stubArchive struct {
	url   string
	err   error
	calls int
}

func (s *stubArchive) Upload(_ context.Context, _ []byte) (media.UploadResult, error) {
	s.calls++
	if s.err != nil {
		return media.UploadResult{}, s.err
	}
	return media.UploadResult{Key: "meals/test.jpg", URL: s.url}, nil
}

func foodAnalyzer() *stubAnalyzer {
	return &stubAnalyzer{result: InferenceResult{
		IsFood: true,
		Items:  []Item{{Name: "apple", Calories: 95}},
	}}
}

func TestUploadArchiveFailureNotFatal(t *testing.T) {
	archive := &stubArchive{err: errors.New("bucket unreachable")}
	h := Handler{Analyzer: foodAnalyzer(), Archive: archive, Pages: testRenderer(t)}

	rec := httptest.NewRecorder()
	h.AnalyzeUpload(rec, uploadRequest(t, "food_image", "apple.png", testImagePNG(t)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	if archive.calls != 1 {
		t.Fatalf("archive invoked %d times, want 1", archive.calls)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "[apple]") {
		t.Fatalf("rendered page missing items: %s", body)
	}
	if strings.Contains(body, "photo:") {
		t.Fatalf("failed archive leaked a photo URL: %s", body)
	}
}

func TestUploadArchiveDisabledNotFatal(t *testing.T) {
	archive := &stubArchive{err: media.ErrUploaderDisabled}
	h := Handler{Analyzer: foodAnalyzer(), Archive: archive, Pages: testRenderer(t)}

	rec := httptest.NewRecorder()
	h.AnalyzeUpload(rec, uploadRequest(t, "food_image", "apple.png", testImagePNG(t)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
}

func TestUploadArchiveURLRendered(t *testing.T) {
	archive := &stubArchive{url: "https://cdn.example.com/meals/test.jpg"}
	h := Handler{Analyzer: foodAnalyzer(), Archive: archive, Pages: testRenderer(t)}

	rec := httptest.NewRecorder()
	h.AnalyzeUpload(rec, uploadRequest(t, "food_image", "apple.png", testImagePNG(t)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	if !strings.Contains(rec.Body.String(), "photo:https://cdn.example.com/meals/test.jpg") {
		t.Fatalf("archive URL missing from page: %s", rec.Body)
	}
}

func TestUploadGarbageImage(t *testing.T) {
	analyzer := &stubAnalyzer{}
	h := Handler{Analyzer: analyzer, Pages: testRenderer(t)}

	rec := httptest.NewRecorder()
	h.AnalyzeUpload(rec, uploadRequest(t, "food_image", "junk.bin", []byte("not an image")))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if analyzer.calls != 0 {
		t.Fatalf("analyzer invoked %d times, want 0 (decode fails first)", analyzer.calls)
	}
}
