package assessment

import (
	"fmt"
	"net/http"
	"strconv"

	"nutrilens/internal/web"
)

// Handler serves the assessment page and the dashboard analyze form. Both
// forms feed the same Evaluate function.
type Handler struct {
	Pages *web.Renderer
}

// Page handles GET /assessment.
func (h Handler) Page(w http.ResponseWriter, r *http.Request) {
	h.Pages.Render(w, r, "assessment.html", nil)
}

// Submit handles POST /assessment, re-rendering the page with the result.
func (h Handler) Submit(w http.ResponseWriter, r *http.Request) {
	result, err := h.evaluateForm(r)
	if err != nil {
		web.SetFlash(w, "danger", fmt.Sprintf("Error in assessment: %v", err))
		http.Redirect(w, r, "/assessment", http.StatusSeeOther)
		return
	}
	h.Pages.Render(w, r, "assessment.html", result)
}

// Analyze handles POST /analyze from the dashboard form.
func (h Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	result, err := h.evaluateForm(r)
	if err != nil {
		web.SetFlash(w, "danger", fmt.Sprintf("Error in analyze: %v", err))
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	h.Pages.Render(w, r, "dashboard.html", result)
}

func (h Handler) evaluateForm(r *http.Request) (Result, error) {
	if err := r.ParseForm(); err != nil {
		return Result{}, err
	}

	height, err := strconv.ParseFloat(r.PostFormValue("height"), 64)
	if err != nil {
		return Result{}, fmt.Errorf("invalid height")
	}
	weight, err := strconv.ParseFloat(r.PostFormValue("weight"), 64)
	if err != nil {
		return Result{}, fmt.Errorf("invalid weight")
	}

	return Evaluate(height, weight)
}
