package nutrition

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"nutrilens/internal/media"
	"nutrilens/internal/web"
)

// maxImageBytes caps uploaded and frame images.
const maxImageBytes = 10 * 1024 * 1024 // 10 MB

// accessDeniedMessage guides the operator toward a usable credential.
const accessDeniedMessage = "Vision API error: model access denied. " +
	"Either switch to a user-scoped API key or enable the model for your project."

// Handler bundles the nutrition pipeline endpoints. Analyzer may be nil when
// no credential was configured at startup.
type Handler struct {
	Analyzer Analyzer
	Archive  media.Uploader
	Pages    *web.Renderer
}

// PageView carries a successful analysis into the nutrition template.
type PageView struct {
	Items    []Item
	Totals   Totals
	ImageB64 string
	PhotoURL string
}

// Page handles GET /nutrition.
func (h Handler) Page(w http.ResponseWriter, r *http.Request) {
	h.Pages.Render(w, r, "nutrition.html", nil)
}

// AnalyzeUpload handles POST /analyze_nutrition: multipart food_image in,
// rendered page out. Every failure becomes a flash message and a redirect
// back to the nutrition page.
func (h Handler) AnalyzeUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImageBytes + (1 << 20)); err != nil {
		h.rejectUpload(w, r, "Could not parse the upload form.")
		return
	}

	file, header, err := r.FormFile("food_image")
	if err != nil {
		h.rejectUpload(w, r, "No file uploaded")
		return
	}
	defer file.Close()

	if strings.TrimSpace(header.Filename) == "" {
		h.rejectUpload(w, r, "No file selected")
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, maxImageBytes+1))
	if err != nil || len(data) == 0 {
		h.rejectUpload(w, r, "Could not read the uploaded file.")
		return
	}
	if len(data) > maxImageBytes {
		h.rejectUpload(w, r, "Image is too large.")
		return
	}

	imageB64, err := Normalize(data)
	if err != nil {
		h.rejectUpload(w, r, fmt.Sprintf("Error analyzing image: %v", err))
		return
	}

	analysis, err := h.infer(r, imageB64)
	if err != nil {
		h.rejectUpload(w, r, uploadErrorMessage(err))
		return
	}

	if !analysis.IsFood {
		h.rejectUpload(w, r, "Upload is not valid (not food).")
		return
	}
	if len(analysis.Items) == 0 {
		h.rejectUpload(w, r, "Could not detect food items.")
		return
	}

	view := PageView{
		Items:    analysis.Items,
		Totals:   analysis.Totals,
		ImageB64: imageB64,
	}
	view.PhotoURL = h.archivePhoto(r, imageB64)

	h.Pages.Render(w, r, "nutrition.html", view)
}

// AnalyzeFrame handles POST /analyze_nutrition_frame for the live-camera
// polling flow: JSON in, JSON envelope out.
func (h Handler) AnalyzeFrame(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ImageB64 string `json:"image_b64"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxImageBytes*2)).Decode(&req); err != nil && err != io.EOF {
		writeFrameError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ImageB64 == "" {
		writeFrameError(w, http.StatusBadRequest, "image_b64 missing")
		return
	}

	imageB64, err := NormalizeBase64(req.ImageB64)
	if err != nil {
		writeFrameError(w, http.StatusBadRequest, err.Error())
		return
	}

	analysis, err := h.infer(r, imageB64)
	if err != nil {
		if errors.Is(err, ErrModelAccess) {
			writeFrameError(w, http.StatusForbidden, accessDeniedMessage)
			return
		}
		writeFrameError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"is_food": analysis.IsFood,
		"items":   analysis.Items,
		"totals":  analysis.Totals,
	})
}

func (h Handler) infer(r *http.Request, imageB64 string) (Analysis, error) {
	if h.Analyzer == nil {
		return Analysis{}, ErrNotConfigured
	}
	result, err := h.Analyzer.Infer(r.Context(), imageB64)
	if err != nil {
		return Analysis{}, err
	}
	return Aggregate(result), nil
}

// archivePhoto stores the normalized JPEG when an archive is configured. A
// failed archive is logged and swallowed: it must never fail the request.
func (h Handler) archivePhoto(r *http.Request, imageB64 string) string {
	if h.Archive == nil {
		return ""
	}
	raw, err := base64.StdEncoding.DecodeString(imageB64)
	if err != nil {
		return ""
	}
	result, err := h.Archive.Upload(r.Context(), raw)
	if err != nil {
		if !errors.Is(err, media.ErrUploaderDisabled) {
			log.Printf("photo archive failed: %v", err)
		}
		return ""
	}
	return result.URL
}

func (h Handler) rejectUpload(w http.ResponseWriter, r *http.Request, message string) {
	web.SetFlash(w, "danger", message)
	http.Redirect(w, r, "/nutrition", http.StatusSeeOther)
}

func uploadErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrNotConfigured):
		return "Vision features are not configured on this server."
	case errors.Is(err, ErrModelAccess):
		return accessDeniedMessage
	case errors.Is(err, ErrMalformedReply):
		return fmt.Sprintf("Vision API error: %v", err)
	default:
		return fmt.Sprintf("Error analyzing image: %v", err)
	}
}

func writeFrameError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"ok": false, "error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write json: %v", err)
	}
}
