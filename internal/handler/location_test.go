package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"fieldtrack/api/internal/model"
	"fieldtrack/api/internal/service"
)

type stubWorkers struct{}

func (stubWorkers) GetWorker(_ context.Context, workerID uint) (*model.Worker, error) {
	if workerID != 1 {
		return nil, service.ErrWorkerNotFound
	}
	return &model.Worker{ID: 1, FirstName: "Sara"}, nil
}

type stubPositions struct{}

func (stubPositions) SavePosition(_ context.Context, pos *model.PositionRecord) error {
	pos.ID = 1
	return nil
}

type stubAssignments struct {
	rows []model.WorkerZoneAssignment
}

func (s *stubAssignments) ActiveAssignmentsFor(context.Context, uint) ([]model.WorkerZoneAssignment, error) {
	return s.rows, nil
}

func (s *stubAssignments) SetViolating(context.Context, uint, uint, bool) error {
	return nil
}

type stubLedger struct{}

func (stubLedger) OpenViolation(_ context.Context, positionID, workerID, geofenceID uint, violationType string, observedAt time.Time) (*model.ViolationRecord, error) {
	return &model.ViolationRecord{ID: 1, WorkerID: workerID, GeofenceID: geofenceID, ViolationType: violationType}, nil
}

func (stubLedger) CloseViolation(context.Context, uint, uint, time.Time) error {
	return nil
}

func newLocationRouter(assignments *stubAssignments) *gin.Engine {
	gin.SetMode(gin.TestMode)

	engine := service.NewViolationEngine(stubWorkers{}, stubPositions{}, assignments, stubLedger{}, nil, service.NewTimeWindowEvaluator(time.UTC))
	h := NewLocationHandler(engine, nil)

	r := gin.New()
	r.POST("/workers/:id/locations", h.RecordLocation)
	return r
}

func postLocation(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRecordLocation_OK(t *testing.T) {
	assignments := &stubAssignments{rows: []model.WorkerZoneAssignment{{
		AssignmentID: 1,
		WorkerID:     1,
		GeofenceID:   10,
		Type:         model.AccessAuthorized,
		StartTime:    "00:00:00",
		EndTime:      "23:59:59",
		GeofenceName: "Depot",
		Boundary: model.Boundary{
			{Latitude: 0, Longitude: 0},
			{Latitude: 0, Longitude: 1},
			{Latitude: 1, Longitude: 1},
			{Latitude: 1, Longitude: 0},
		},
	}}}
	r := newLocationRouter(assignments)

	w := postLocation(r, "/workers/1/locations", `{"longitude":0.5,"latitude":0.5}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Messages []struct {
			GeofenceID uint   `json:"geofence_id"`
			Text       string `json:"text"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(resp.Messages) != 1 || resp.Messages[0].GeofenceID != 10 {
		t.Errorf("unexpected messages: %+v", resp.Messages)
	}
}

func TestRecordLocation_UnknownWorker(t *testing.T) {
	r := newLocationRouter(&stubAssignments{})

	w := postLocation(r, "/workers/42/locations", `{"longitude":0.5,"latitude":0.5}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestRecordLocation_NoAssignments(t *testing.T) {
	r := newLocationRouter(&stubAssignments{})

	w := postLocation(r, "/workers/1/locations", `{"longitude":0.5,"latitude":0.5}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "no geofences assigned") {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

func TestRecordLocation_MissingCoordinates(t *testing.T) {
	r := newLocationRouter(&stubAssignments{})

	w := postLocation(r, "/workers/1/locations", `{"longitude":0.5}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestRecordLocation_OutOfRangeCoordinates(t *testing.T) {
	r := newLocationRouter(&stubAssignments{})

	w := postLocation(r, "/workers/1/locations", `{"longitude":0.5,"latitude":95}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestRecordLocation_InvalidWorkerID(t *testing.T) {
	r := newLocationRouter(&stubAssignments{})

	w := postLocation(r, "/workers/abc/locations", `{"longitude":0.5,"latitude":0.5}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
