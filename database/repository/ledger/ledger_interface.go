package ledgerRepo

import (
	"context"
	"errors"
	"time"

	"mastermatch/models"
)

var (
	// ErrSlotConflict signals that the conditional reserve matched no
	// document: capacity exhausted, window overlap, or the technician is
	// no longer reservable. Callers fall through to the next candidate.
	ErrSlotConflict = errors.New("capacity conflict")
	// ErrSlotNotFound signals a release for a slot that no longer exists.
	ErrSlotNotFound = errors.New("busy slot not found")
	// ErrAssignmentNotFound signals an unknown or already-closed assignment.
	ErrAssignmentNotFound = errors.New("assignment not found")
)

// LedgerRepository is the capacity ledger: per-technician counters and
// busy slots, plus the assignment records that own them. Reserve and
// release are single conditional updates on the technician document, so
// concurrent reservations on the same technician serialize at the store.
type LedgerRepository interface {
	// TryReserve atomically claims capacity: succeeds only if
	// activeOrders < maxActiveOrders and no existing busy slot conflicts
	// with the window; on success it increments activeOrders, appends
	// the slot and flips availability to busy in the same step.
	// Returns ErrSlotConflict with no side effects otherwise.
	TryReserve(ctx context.Context, technicianID string, slot models.BusySlot) error
	// Release removes the slot for requestID, decrements activeOrders
	// and flips availability back to online only if no other slot
	// remains — all in one atomic step.
	Release(ctx context.Context, technicianID, requestID string) error
	// ReserveAssignment performs TryReserve and inserts the assignment
	// record in a single transaction.
	ReserveAssignment(ctx context.Context, a *models.Assignment) error
	// GetAssignment fetches an assignment by id.
	GetAssignment(id string) (*models.Assignment, error)
	// GetAssignmentByRequestID fetches the assignment created for a request.
	GetAssignmentByRequestID(requestID string) (*models.Assignment, error)
	// StartAssignment moves assigned -> active when the technician
	// acknowledges the job.
	StartAssignment(ctx context.Context, id string, at time.Time) error
	// CloseAssignment finishes an open assignment with status completed
	// or cancelled, releases the technician's capacity and bumps the
	// lifetime counters, transactionally. `detail` is the outcome for
	// completions and the reason for cancellations.
	CloseAssignment(ctx context.Context, id, status, detail string, at time.Time) (*models.Assignment, error)
}
