package services

import (
	"errors"
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/renewloop/ewaste-repair-api/models"
	"github.com/renewloop/ewaste-repair-api/realtime"
	"gorm.io/gorm"
)

// Fixed audit messages appended on lifecycle transitions. The claim message
// doubles as the acceptance signal shown to the requester.
const (
	MsgClaimed    = "Your repair request has been accepted. I will start the diagnosis shortly."
	MsgDiagnosing = "Diagnosis of your device has started."
	MsgRepairing  = "Repair work on your device has started."
	MsgCompleted  = "Your device has been repaired and is ready for pickup."
	MsgCancelled  = "This repair request has been cancelled."
)

var advanceMessages = map[string]string{
	models.StatusDiagnosing: MsgDiagnosing,
	models.StatusRepairing:  MsgRepairing,
	models.StatusCompleted:  MsgCompleted,
	models.StatusCancelled:  MsgCancelled,
}

// CreateRequestInput carries the requester-supplied fields for a new repair request
type CreateRequestInput struct {
	DeviceType       string
	IssueDescription string
	Address          string
	Notes            string
}

// LifecycleService gates and applies repair request status transitions. It
// owns the transition table; the HTTP layer only resolves actors and
// translates LifecycleError codes into responses. Every successful transition
// appends an audit RepairUpdate, persists a counterparty notification and
// publishes a change feed event.
type LifecycleService struct {
	db   *gorm.DB
	feed *realtime.Feed
}

var lifecycleInstance *LifecycleService

// InitLifecycleService initializes the lifecycle service
func InitLifecycleService(db *gorm.DB, feed *realtime.Feed) *LifecycleService {
	lifecycleInstance = NewLifecycleService(db, feed)
	return lifecycleInstance
}

// GetLifecycleService returns the initialized lifecycle service instance
func GetLifecycleService() *LifecycleService {
	return lifecycleInstance
}

// SetLifecycleService sets the lifecycle service instance (primarily for testing)
func SetLifecycleService(s *LifecycleService) {
	lifecycleInstance = s
}

// NewLifecycleService creates a lifecycle service. feed may be nil, in which
// case no change feed events are published.
func NewLifecycleService(db *gorm.DB, feed *realtime.Feed) *LifecycleService {
	return &LifecycleService{db: db, feed: feed}
}

// CreateRequest creates a new repair request owned by the requester with
// status=pending and no technician assigned.
func (s *LifecycleService) CreateRequest(owner *models.Profile, input CreateRequestInput) (*models.RepairRequest, error) {
	if input.DeviceType == "" {
		return nil, NewValidationError("Device type is required")
	}
	if input.IssueDescription == "" {
		return nil, NewValidationError("Issue description is required")
	}
	if input.Address == "" {
		return nil, NewValidationError("Address is required")
	}

	repair := models.RepairRequest{
		DeviceType:       input.DeviceType,
		IssueDescription: input.IssueDescription,
		Address:          input.Address,
		Notes:            input.Notes,
		Status:           models.StatusPending,
		UserID:           owner.ID,
	}

	if err := s.db.Create(&repair).Error; err != nil {
		return nil, NewStoreError("Failed to create repair request", err)
	}

	if err := s.db.Preload("User").First(&repair, repair.ID).Error; err != nil {
		return nil, NewStoreError("Failed to load repair request", err)
	}

	s.publishRepair(realtime.EventInsert, nil, &repair)
	return &repair, nil
}

// Claim assigns a pending, unassigned repair request to the technician. The
// store's conditional update is the source of truth for the two-technician
// race: a zero-row result is surfaced as a conflict, never a silent success.
func (s *LifecycleService) Claim(repairID uint, technician *models.Profile) (*models.RepairRequest, error) {
	if !technician.IsTechnician() {
		return nil, NewAuthorizationError("Only technicians can claim repair requests")
	}

	before, err := s.getRepair(repairID)
	if err != nil {
		return nil, err
	}

	result := s.db.Model(&models.RepairRequest{}).
		Where("id = ? AND status = ? AND technician_id IS NULL", repairID, models.StatusPending).
		Updates(map[string]interface{}{
			"status":        models.StatusAssigned,
			"technician_id": technician.ID,
		})
	if result.Error != nil {
		return nil, NewStoreError("Failed to claim repair request", result.Error)
	}
	if result.RowsAffected == 0 {
		// Someone else won the race, or the request already moved on.
		return nil, NewConflictError("This repair request has already been claimed")
	}

	if err := s.appendUpdate(repairID, technician.ID, MsgClaimed); err != nil {
		return nil, err
	}

	after, err := s.getRepair(repairID)
	if err != nil {
		return nil, err
	}

	s.notify(after.UserID, "Repair request accepted", MsgClaimed, "success")
	s.publishRepair(realtime.EventUpdate, before, after)
	return after, nil
}

// Advance moves a repair request forward through the lifecycle, or to
// cancelled from any non-terminal state. Forward skips are allowed as long as
// the target is strictly later in the fixed order; same-status calls are
// no-ops so retries never duplicate audit messages.
func (s *LifecycleService) Advance(repairID uint, actor *models.Profile, newStatus string) (*models.RepairRequest, error) {
	if !actor.IsTechnician() {
		return nil, NewAuthorizationError("Only technicians can advance repair requests")
	}

	repair, err := s.getRepair(repairID)
	if err != nil {
		return nil, err
	}

	if repair.TechnicianID == nil || *repair.TechnicianID != actor.ID {
		return nil, NewAuthorizationError("Repair request is not assigned to you")
	}

	// Idempotent retry: re-applying the current status changes nothing.
	if newStatus == repair.Status {
		return repair, nil
	}

	if err := validateTransition(repair.Status, newStatus); err != nil {
		return nil, err
	}

	return s.applyStatus(repair, actor, newStatus)
}

// Cancel moves a repair request to cancelled. The owning requester may cancel
// only while the request is still pending; the assigned technician may cancel
// from any non-terminal state. Cancelling twice is a no-op.
func (s *LifecycleService) Cancel(repairID uint, actor *models.Profile) (*models.RepairRequest, error) {
	repair, err := s.getRepair(repairID)
	if err != nil {
		return nil, err
	}

	if repair.Status == models.StatusCancelled {
		return repair, nil
	}
	if repair.Status == models.StatusCompleted {
		return nil, NewInvalidTransitionError("Completed repair requests cannot be cancelled")
	}

	if actor.IsTechnician() {
		if repair.TechnicianID == nil || *repair.TechnicianID != actor.ID {
			return nil, NewAuthorizationError("Repair request is not assigned to you")
		}
	} else {
		if repair.UserID != actor.ID {
			return nil, NewAuthorizationError("You do not have permission to cancel this repair request")
		}
		if repair.Status != models.StatusPending {
			return nil, NewInvalidTransitionError("Repair requests can only be cancelled while pending")
		}
	}

	return s.applyStatus(repair, actor, models.StatusCancelled)
}

// SetCostEstimate records the technician's repair cost estimate. The amount
// must be a finite number >= 0 and the request must not be cancelled.
func (s *LifecycleService) SetCostEstimate(repairID uint, actor *models.Profile, amount float64) (*models.RepairRequest, error) {
	if !actor.IsTechnician() {
		return nil, NewAuthorizationError("Only technicians can set cost estimates")
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return nil, NewValidationError("Cost estimate must be a finite number greater than or equal to 0")
	}

	repair, err := s.getRepair(repairID)
	if err != nil {
		return nil, err
	}
	if repair.TechnicianID == nil || *repair.TechnicianID != actor.ID {
		return nil, NewAuthorizationError("Repair request is not assigned to you")
	}
	if repair.Status == models.StatusCancelled {
		return nil, NewInvalidTransitionError("Cost estimates cannot be set on cancelled repair requests")
	}

	before := *repair
	if err := s.db.Model(repair).Update("estimated_cost", amount).Error; err != nil {
		return nil, NewStoreError("Failed to update cost estimate", err)
	}

	message := fmt.Sprintf("Estimated repair cost: $%.2f", amount)
	if err := s.appendUpdate(repairID, actor.ID, message); err != nil {
		return nil, err
	}

	after, err := s.getRepair(repairID)
	if err != nil {
		return nil, err
	}

	s.notify(after.UserID, "Cost estimate updated", message, "info")
	s.publishRepair(realtime.EventUpdate, &before, after)
	return after, nil
}

// PostMessage appends a free-form message to the repair's update thread.
// Either party may post while the request is not cancelled, except that a
// requester cannot message while the request is still pending (a technician
// can, which is how acceptance-equivalent notes get through).
func (s *LifecycleService) PostMessage(repairID uint, author *models.Profile, text string) (*models.RepairUpdate, error) {
	if strings.TrimSpace(text) == "" {
		return nil, NewValidationError("Message text is required")
	}

	repair, err := s.getRepair(repairID)
	if err != nil {
		return nil, err
	}

	if repair.Status == models.StatusCancelled {
		return nil, NewInvalidTransitionError("Messages cannot be posted on cancelled repair requests")
	}

	if author.IsTechnician() {
		// Pre-claim any technician may message; once assigned, only the
		// assigned technician.
		if repair.TechnicianID != nil && *repair.TechnicianID != author.ID {
			return nil, NewAuthorizationError("Repair request is not assigned to you")
		}
	} else {
		if repair.UserID != author.ID {
			return nil, NewAuthorizationError("You do not have permission to message on this repair request")
		}
		if repair.Status == models.StatusPending {
			return nil, NewInvalidTransitionError("Messages cannot be posted until a technician accepts the request")
		}
	}

	update := models.RepairUpdate{
		RepairID: repairID,
		AuthorID: author.ID,
		Message:  text,
	}
	if err := s.db.Create(&update).Error; err != nil {
		return nil, NewStoreError("Failed to post message", err)
	}
	if err := s.db.Preload("Author").First(&update, update.ID).Error; err != nil {
		return nil, NewStoreError("Failed to load message", err)
	}

	// Tell the other party about thread activity.
	if author.ID == repair.UserID {
		if repair.TechnicianID != nil {
			s.notify(*repair.TechnicianID, "New message", text, "info")
		}
	} else {
		s.notify(repair.UserID, "New message", text, "info")
	}

	s.publishUpdate(&update)
	return &update, nil
}

// ListUpdates returns the repair's update thread ordered oldest first
func (s *LifecycleService) ListUpdates(repairID uint) ([]models.RepairUpdate, error) {
	if _, err := s.getRepair(repairID); err != nil {
		return nil, err
	}

	var updates []models.RepairUpdate
	if err := s.db.Where("repair_id = ?", repairID).
		Preload("Author").
		Order("created_at ASC").
		Find(&updates).Error; err != nil {
		return nil, NewStoreError("Failed to fetch repair updates", err)
	}
	return updates, nil
}

// applyStatus performs the guarded status write plus audit, notification and
// feed publication shared by Advance and Cancel. The WHERE clause on the
// current status makes concurrent transitions lose cleanly instead of
// clobbering each other.
func (s *LifecycleService) applyStatus(repair *models.RepairRequest, actor *models.Profile, newStatus string) (*models.RepairRequest, error) {
	before := *repair

	result := s.db.Model(&models.RepairRequest{}).
		Where("id = ? AND status = ?", repair.ID, repair.Status).
		Update("status", newStatus)
	if result.Error != nil {
		return nil, NewStoreError("Failed to update repair status", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, NewConflictError("Repair request was modified by someone else, please retry")
	}

	message, ok := advanceMessages[newStatus]
	if !ok {
		message = fmt.Sprintf("Status updated to %s", newStatus)
	}
	if err := s.appendUpdate(repair.ID, actor.ID, message); err != nil {
		return nil, err
	}

	after, err := s.getRepair(repair.ID)
	if err != nil {
		return nil, err
	}

	severity := "success"
	if newStatus == models.StatusCancelled {
		severity = "error"
	}
	if actor.ID == after.UserID {
		// Requester cancelled their own pending request; tell nobody but a
		// claimed technician if one exists.
		if after.TechnicianID != nil {
			s.notify(*after.TechnicianID, "Repair request cancelled", message, severity)
		}
	} else {
		s.notify(after.UserID, "Repair status updated", message, severity)
	}

	s.publishRepair(realtime.EventUpdate, &before, after)
	return after, nil
}

func (s *LifecycleService) getRepair(repairID uint) (*models.RepairRequest, error) {
	var repair models.RepairRequest
	err := s.db.Preload("User").Preload("Technician").First(&repair, repairID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("Repair request not found")
		}
		return nil, NewStoreError("Failed to fetch repair request", err)
	}
	return &repair, nil
}

func (s *LifecycleService) appendUpdate(repairID, authorID uint, message string) error {
	update := models.RepairUpdate{
		RepairID: repairID,
		AuthorID: authorID,
		Message:  message,
	}
	if err := s.db.Create(&update).Error; err != nil {
		return NewStoreError("Failed to append repair update", err)
	}
	s.publishUpdate(&update)
	return nil
}

func (s *LifecycleService) notify(userID uint, title, message, notifType string) {
	notification := models.Notification{
		UserID:  userID,
		Title:   title,
		Message: message,
		Type:    notifType,
	}
	// Notification rows are best-effort; a failed insert never fails the
	// transition that produced it.
	if err := s.db.Create(&notification).Error; err != nil {
		log.Printf("Failed to persist notification for user %d: %v", userID, err)
	}
}

func (s *LifecycleService) publishRepair(eventType string, old, new *models.RepairRequest) {
	if s.feed == nil {
		return
	}
	s.feed.Publish(realtime.Event{
		Table: models.RepairRequest{}.TableName(),
		Type:  eventType,
		Old:   snapshotRepair(old),
		New:   snapshotRepair(new),
	})
}

func (s *LifecycleService) publishUpdate(update *models.RepairUpdate) {
	if s.feed == nil {
		return
	}
	s.feed.Publish(realtime.Event{
		Table: models.RepairUpdate{}.TableName(),
		Type:  realtime.EventInsert,
		New:   update,
	})
}

// validateTransition checks the target against the fixed forward order.
// Cancellation is reachable from any non-terminal state; anything else must
// move strictly forward.
func validateTransition(current, target string) error {
	if models.IsTerminalStatus(current) {
		return NewInvalidTransitionError(fmt.Sprintf("Repair request is already %s", current))
	}
	if target == models.StatusCancelled {
		return nil
	}

	currentRank, ok := models.StatusRank[current]
	if !ok {
		return NewInvalidTransitionError(fmt.Sprintf("Unknown status %q", current))
	}
	targetRank, ok := models.StatusRank[target]
	if !ok {
		return NewInvalidTransitionError(fmt.Sprintf("Unknown status %q", target))
	}
	if targetRank <= currentRank {
		return NewInvalidTransitionError(fmt.Sprintf("Cannot move from %s back to %s", current, target))
	}
	return nil
}

// snapshotRepair strips the preloaded associations so feed events stay small
func snapshotRepair(r *models.RepairRequest) interface{} {
	if r == nil {
		return nil
	}
	snapshot := *r
	snapshot.User = models.Profile{}
	snapshot.Technician = nil
	snapshot.Images = nil
	return &snapshot
}
