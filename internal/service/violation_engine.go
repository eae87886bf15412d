package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"fieldtrack/api/internal/model"
)

// Sentinel errors surfaced to the HTTP layer
var (
	ErrWorkerNotFound     = errors.New("worker not found")
	ErrInvalidCoordinates = errors.New("invalid coordinates")
)

// WorkerDirectory resolves worker identities
type WorkerDirectory interface {
	GetWorker(ctx context.Context, workerID uint) (*model.Worker, error)
}

// PositionRecorder persists location observations
type PositionRecorder interface {
	SavePosition(ctx context.Context, pos *model.PositionRecord) error
}

// AssignmentStore exposes the current geofence assignments of a worker and
// owns the per-assignment violation flag
type AssignmentStore interface {
	// ActiveAssignmentsFor returns every active assignment for the worker
	// joined with its geofence, excluding soft-deleted workers and geofences.
	ActiveAssignmentsFor(ctx context.Context, workerID uint) ([]model.WorkerZoneAssignment, error)
	// SetViolating updates the violation flag. Idempotent: setting the flag
	// to its current value is not an error.
	SetViolating(ctx context.Context, workerID, geofenceID uint, violating bool) error
}

// ViolationLedger opens and closes violation records
type ViolationLedger interface {
	OpenViolation(ctx context.Context, positionID, workerID, geofenceID uint, violationType string, observedAt time.Time) (*model.ViolationRecord, error)
	// CloseViolation sets end_time on the open record for the
	// (worker, geofence) pair.
	CloseViolation(ctx context.Context, workerID, geofenceID uint, observedAt time.Time) error
}

// AlertPublisher fans violation transitions out to subscribers (NATS)
type AlertPublisher interface {
	PublishViolation(ctx context.Context, msg *model.AlertMessage) error
}

// ZoneMessage is one human-readable evaluation result tagged with its geofence
type ZoneMessage struct {
	GeofenceID uint   `json:"geofence_id"`
	Text       string `json:"text"`
}

// ObservationResult aggregates the outcome of evaluating one position against
// every assignment of the worker
type ObservationResult struct {
	Position      *model.PositionRecord `json:"location"`
	Messages      []ZoneMessage         `json:"messages"`
	Inside        map[uint]bool         `json:"inside_by_geofence"`
	NoAssignments bool                  `json:"no_assignments"`
}

// ViolationEngine evaluates location observations against geofence
// assignments and drives the per-assignment violation state machine.
//
// Concurrent pings for the same worker are serialized on a striped lock:
// the read-flag-then-write sequence below is not atomic on its own, and two
// near-simultaneous pings could otherwise both open a violation for the same
// (worker, geofence) pair. The stripe count bounds memory regardless of how
// many distinct worker IDs are seen; all pings for one worker always land on
// the same stripe.
type ViolationEngine struct {
	workers     WorkerDirectory
	positions   PositionRecorder
	assignments AssignmentStore
	ledger      ViolationLedger
	publisher   AlertPublisher
	windows     *TimeWindowEvaluator

	locks [64]sync.Mutex

	now func() time.Time
}

// NewViolationEngine creates the engine. The publisher may be nil; alert
// fan-out is then skipped.
func NewViolationEngine(workers WorkerDirectory, positions PositionRecorder, assignments AssignmentStore, ledger ViolationLedger, publisher AlertPublisher, windows *TimeWindowEvaluator) *ViolationEngine {
	return &ViolationEngine{
		workers:     workers,
		positions:   positions,
		assignments: assignments,
		ledger:      ledger,
		publisher:   publisher,
		windows:     windows,
		now:         time.Now,
	}
}

// workerLock returns the lock stripe serializing evaluations for one worker
func (e *ViolationEngine) workerLock(workerID uint) *sync.Mutex {
	return &e.locks[workerID%uint(len(e.locks))]
}

// RecordObservation persists a new position for the worker and evaluates it
// against every active assignment. Assignments are processed sequentially;
// a persistence failure aborts the request and leaves earlier assignments
// committed.
func (e *ViolationEngine) RecordObservation(ctx context.Context, workerID uint, longitude, latitude float64) (*ObservationResult, error) {
	if latitude < -90 || latitude > 90 || longitude < -180 || longitude > 180 {
		return nil, fmt.Errorf("%w: lat=%f lon=%f", ErrInvalidCoordinates, latitude, longitude)
	}

	worker, err := e.workers.GetWorker(ctx, workerID)
	if err != nil {
		return nil, err
	}

	lock := e.workerLock(workerID)
	lock.Lock()
	defer lock.Unlock()

	pos := &model.PositionRecord{
		WorkerID:  workerID,
		Longitude: longitude,
		Latitude:  latitude,
		CreatedAt: e.now(),
	}
	if err := e.positions.SavePosition(ctx, pos); err != nil {
		return nil, fmt.Errorf("save position: %w", err)
	}

	assignments, err := e.assignments.ActiveAssignmentsFor(ctx, workerID)
	if err != nil {
		return nil, fmt.Errorf("load assignments: %w", err)
	}

	result := &ObservationResult{
		Position: pos,
		Inside:   make(map[uint]bool, len(assignments)),
	}
	if len(assignments) == 0 {
		result.NoAssignments = true
		return result, nil
	}

	// reject bad assignment data up front so no transition is committed for
	// a position that cannot be evaluated in full
	for _, a := range assignments {
		if a.Type != model.AccessAuthorized && a.Type != model.AccessRestricted {
			return nil, fmt.Errorf("assignment %d: unknown assignment type %q", a.AssignmentID, a.Type)
		}
	}

	for _, a := range assignments {
		msg, err := e.evaluate(ctx, worker, pos, a)
		if err != nil {
			return nil, err
		}
		result.Inside[a.GeofenceID] = msg.inside
		result.Messages = append(result.Messages, ZoneMessage{GeofenceID: a.GeofenceID, Text: msg.text})
	}

	return result, nil
}

type zoneOutcome struct {
	inside bool
	text   string
}

// evaluate runs the state machine for one assignment and applies its actions
func (e *ViolationEngine) evaluate(ctx context.Context, worker *model.Worker, pos *model.PositionRecord, a model.WorkerZoneAssignment) (zoneOutcome, error) {
	ring := CloseRing(a.Boundary)
	inside := PointInPolygon(pos.Latitude, pos.Longitude, ring)

	within, err := e.windows.InWindow(pos.CreatedAt, a.StartTime, a.EndTime)
	if err != nil {
		return zoneOutcome{}, fmt.Errorf("assignment %d: %w", a.AssignmentID, err)
	}

	d, err := transition(a.Type, a.IsViolating, inside, within)
	if err != nil {
		return zoneOutcome{}, fmt.Errorf("assignment %d: %w", a.AssignmentID, err)
	}

	text := fmt.Sprintf(d.format, a.GeofenceName)

	switch d.act {
	case actionOpen:
		rec, err := e.ledger.OpenViolation(ctx, pos.ID, a.WorkerID, a.GeofenceID, d.violationType, pos.CreatedAt)
		if err != nil {
			return zoneOutcome{}, fmt.Errorf("open violation for geofence %d: %w", a.GeofenceID, err)
		}
		if err := e.assignments.SetViolating(ctx, a.WorkerID, a.GeofenceID, true); err != nil {
			return zoneOutcome{}, fmt.Errorf("set violating for geofence %d: %w", a.GeofenceID, err)
		}
		e.publish(ctx, model.AlertViolationOpened, worker, pos, a, rec, text)

	case actionClose:
		if err := e.ledger.CloseViolation(ctx, a.WorkerID, a.GeofenceID, pos.CreatedAt); err != nil {
			return zoneOutcome{}, fmt.Errorf("close violation for geofence %d: %w", a.GeofenceID, err)
		}
		if err := e.assignments.SetViolating(ctx, a.WorkerID, a.GeofenceID, false); err != nil {
			return zoneOutcome{}, fmt.Errorf("set violating for geofence %d: %w", a.GeofenceID, err)
		}
		e.publish(ctx, model.AlertViolationClosed, worker, pos, a, nil, text)
	}

	return zoneOutcome{inside: inside, text: text}, nil
}

// publish fans the transition out; failures are logged, never fatal
func (e *ViolationEngine) publish(ctx context.Context, kind string, worker *model.Worker, pos *model.PositionRecord, a model.WorkerZoneAssignment, rec *model.ViolationRecord, text string) {
	if e.publisher == nil {
		return
	}
	msg := &model.AlertMessage{
		Kind:         kind,
		WorkerID:     worker.ID,
		WorkerName:   worker.FullName(),
		GeofenceID:   a.GeofenceID,
		GeofenceName: a.GeofenceName,
		Message:      text,
		Lat:          pos.Latitude,
		Lon:          pos.Longitude,
		Timestamp:    pos.CreatedAt.Unix(),
	}
	if rec != nil {
		msg.ViolationID = rec.ID
		msg.ViolationType = rec.ViolationType
	}
	if err := e.publisher.PublishViolation(ctx, msg); err != nil {
		log.Printf("[ViolationEngine] Failed to publish alert: %v", err)
	}
}

type engineAction int

const (
	actionNone engineAction = iota
	actionOpen
	actionClose
)

type decision struct {
	act           engineAction
	violationType string // Entry or Exit when opening
	format        string // message template, %s is the geofence name
}

// transition is the per-assignment state machine: a pure function from
// (policy type, current state, inside, within window) to the action to take.
// Unknown policy types are a configuration error, never silently skipped.
func transition(accessType string, violating, inside, withinWindow bool) (decision, error) {
	switch accessType {
	case model.AccessAuthorized:
		switch {
		case violating && inside:
			return decision{act: actionClose, format: "worker RE-ENTERED authorized zone %q, violation ended"}, nil
		case violating && !inside:
			return decision{format: "worker STILL OUTSIDE authorized zone %q"}, nil
		case !violating && inside:
			return decision{format: "worker is in the safe zone of %q"}, nil
		case !violating && !inside && withinWindow:
			return decision{act: actionOpen, violationType: model.ViolationExit, format: "violation recorded: worker LEFT authorized zone %q"}, nil
		default: // outside, but window closed
			return decision{format: "worker outside authorized zone %q, outside the monitoring window"}, nil
		}

	case model.AccessRestricted:
		switch {
		case violating && !inside:
			return decision{act: actionClose, format: "worker LEFT restricted zone %q, violation ended"}, nil
		case violating && inside:
			return decision{format: "worker STILL INSIDE restricted zone %q"}, nil
		case !violating && !inside:
			return decision{format: "worker is in the safe zone outside %q"}, nil
		case !violating && inside && withinWindow:
			return decision{act: actionOpen, violationType: model.ViolationEntry, format: "violation recorded: worker ENTERED restricted zone %q"}, nil
		default: // inside, but window closed
			return decision{format: "worker inside restricted zone %q, outside the monitoring window"}, nil
		}

	default:
		return decision{}, fmt.Errorf("unknown assignment type %q", accessType)
	}
}
