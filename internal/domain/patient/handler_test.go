package patient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func TestHandlerCreatePatient_Created(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()

	body := `{"first_name":"Ada","last_name":"Green","email":"ada@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/patients", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.CreatePatient(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var p Patient
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if p.ID == uuid.Nil {
		t.Error("expected assigned id")
	}
}

func TestHandlerCreatePatient_ValidationIs400(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/patients", strings.NewReader(`{"first_name":"Ada"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.CreatePatient(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", httpErr.Code)
	}
}

func TestHandlerGetPatient_MissingIs404(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/patients/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.NewString())

	err := h.GetPatient(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", httpErr.Code)
	}
}

func TestHandlerGetPatient_InvalidIDIs400(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/patients/abc", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("abc")

	err := h.GetPatient(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", httpErr.Code)
	}
}

func TestHandlerListPatients_Paginated(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()

	for _, name := range []string{"Green", "Patel", "Okafor"} {
		if err := svc.CreatePatient(context.Background(), &Patient{FirstName: "A", LastName: name}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/patients?limit=2", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ListPatients(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Data    []Patient `json:"data"`
		Total   int       `json:"total"`
		HasMore bool      `json:"has_more"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Total != 3 {
		t.Errorf("expected total 3, got %d", resp.Total)
	}
	if len(resp.Data) != 2 {
		t.Errorf("expected 2 items in page, got %d", len(resp.Data))
	}
	if !resp.HasMore {
		t.Error("expected has_more true")
	}
}
