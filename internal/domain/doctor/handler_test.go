package doctor

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
	h := NewHandler(newTestService())
	e := echo.New()
	return h, e
}

func TestHandler_CreateDoctor(t *testing.T) {
	h, e := newTestHandler()
	body := `{"first_name":"Gregory","last_name":"House","email":"ghouse@example.org","specialization":"Diagnostics","license_number":"LIC-12345","consultation_fee":"150.00"}`
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

func TestHandler_CreateDoctor_MissingLicense(t *testing.T) {
	h, e := newTestHandler()
	body := `{"first_name":"Gregory","last_name":"House","email":"ghouse@example.org","specialization":"Diagnostics"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Create(c); err == nil {
		t.Error("expected error for missing license_number")
	}
}

func TestHandler_GetDoctor_NotFound(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	if err := h.Get(c); err == nil {
		t.Error("expected error for not found")
	}
}

func TestHandler_SetSchedule(t *testing.T) {
	h, e := newTestHandler()
	d := validDoctor()
	h.svc.Create(context.Background(), d)

	body := `[{"day_of_week":0,"start_time":"09:00","end_time":"17:00","break_start":"12:00","break_end":"13:00","is_available":true}]`
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(d.ID.String())

	if err := h.SetSchedule(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	var week []*AvailabilitySchedule
	if err := json.Unmarshal(rec.Body.Bytes(), &week); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if len(week) != 1 {
		t.Errorf("expected 1 entry, got %d", len(week))
	}
}

func TestHandler_SetSchedule_InvalidWindow(t *testing.T) {
	h, e := newTestHandler()
	d := validDoctor()
	h.svc.Create(context.Background(), d)

	body := `[{"day_of_week":0,"start_time":"17:00","end_time":"09:00"}]`
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(d.ID.String())

	if err := h.SetSchedule(c); err == nil {
		t.Error("expected error for inverted window")
	}
}

func TestHandler_GetSchedule(t *testing.T) {
	h, e := newTestHandler()
	d := validDoctor()
	h.svc.Create(context.Background(), d)
	h.svc.SetWeeklySchedule(context.Background(), d.ID, []*AvailabilitySchedule{
		{DayOfWeek: 2, StartTime: "10:00", EndTime: "16:00", IsAvailable: true},
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(d.ID.String())

	if err := h.GetSchedule(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}
