package notes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func TestHandlerCreateNote_AuthorDefaultsToSystem(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()
	patientID := uuid.NewString()

	req := httptest.NewRequest(http.MethodPost, "/patients/"+patientID+"/notes",
		strings.NewReader(`{"content":"bp stable, continue meds"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("patient_id")
	c.SetParamValues(patientID)

	if err := h.CreateNote(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var view struct {
		PatientID     string `json:"patient_id"`
		AuthorDisplay string `json:"author_display"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if view.PatientID != patientID {
		t.Errorf("expected patient_id from path, got %s", view.PatientID)
	}
	if view.AuthorDisplay != "System" {
		t.Errorf("expected author_display System, got %q", view.AuthorDisplay)
	}
}

func TestHandlerCreateNote_MissingContentIs400(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()
	patientID := uuid.NewString()

	req := httptest.NewRequest(http.MethodPost, "/patients/"+patientID+"/notes", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("patient_id")
	c.SetParamValues(patientID)

	err := h.CreateNote(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", httpErr.Code)
	}
}

func TestHandlerGetNote_MissingIs404(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/notes/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.NewString())

	err := h.GetNote(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", httpErr.Code)
	}
}
