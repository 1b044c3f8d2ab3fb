package appointment

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

func newTestHandler() (*Handler, *echo.Echo) {
	svc, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()
	return h, e
}

func TestHandler_CreateAppointment(t *testing.T) {
	h, e := newTestHandler()
	body := `{"patient_id":"` + uuid.New().String() + `","doctor_id":"` + uuid.New().String() + `","date":"2026-01-05T00:00:00Z","start_time":"09:00"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Create(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
}

func TestHandler_CreateAppointment_Conflict(t *testing.T) {
	h, e := newTestHandler()
	a := validAppointment()
	h.svc.Create(context.Background(), a)

	body := `{"patient_id":"` + uuid.New().String() + `","doctor_id":"` + a.DoctorID.String() + `","date":"2026-01-05T00:00:00Z","start_time":"09:00"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.Create(c)
	if err == nil {
		t.Fatal("expected error for double booking")
	}
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusConflict {
		t.Errorf("expected 409, got %v", err)
	}
}

func TestHandler_Confirm(t *testing.T) {
	h, e := newTestHandler()
	a := validAppointment()
	h.svc.Create(context.Background(), a)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())

	if err := h.Confirm(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp Appointment
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp.Status != StatusConfirmed {
		t.Errorf("expected confirmed, got %s", resp.Status)
	}
}

func TestHandler_Start_BadTransition(t *testing.T) {
	h, e := newTestHandler()
	a := validAppointment()
	h.svc.Create(context.Background(), a)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())

	err := h.Start(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_CheckIn_Completed(t *testing.T) {
	h, e := newTestHandler()
	done := completeAppointment(t, h.svc, validAppointment())

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(done.ID.String())

	err := h.CheckIn(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
	fetched, _ := h.svc.Get(context.Background(), done.ID)
	if fetched.Status != StatusCompleted {
		t.Errorf("status changed to %s", fetched.Status)
	}
}

func TestHandler_Transition_NotFound(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	err := h.Confirm(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestHandler_Cancel(t *testing.T) {
	h, e := newTestHandler()
	a := validAppointment()
	h.svc.Create(context.Background(), a)

	body := `{"reason":"patient request","cancelled_by":"patient"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())

	if err := h.Cancel(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp Appointment
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Status != StatusCancelled || resp.CancellationReason == nil {
		t.Errorf("expected cancelled with reason, got %+v", resp)
	}
}

func TestHandler_Availability(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/?doctor_id="+uuid.New().String()+"&date=2026-01-05", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Availability(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp struct {
		Date  string `json:"date"`
		Slots []Slot `json:"slots"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp.Date != "2026-01-05" {
		t.Errorf("unexpected date %q", resp.Date)
	}
	if len(resp.Slots) != 6 {
		t.Errorf("expected 6 slots, got %d", len(resp.Slots))
	}
}

func TestHandler_Availability_BadDate(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/?doctor_id="+uuid.New().String()+"&date=tomorrow", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Availability(c); err == nil {
		t.Error("expected error for bad date")
	}
}

func TestHandler_History(t *testing.T) {
	h, e := newTestHandler()
	a := validAppointment()
	h.svc.Create(context.Background(), a)
	h.svc.Confirm(context.Background(), a.ID)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())

	if err := h.History(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var rows []*AppointmentHistory
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("expected 2 history rows, got %d", len(rows))
	}
}

func TestHandler_CreateType(t *testing.T) {
	h, e := newTestHandler()
	body := `{"name":"Follow-up","duration_minutes":15}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.CreateType(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
}
