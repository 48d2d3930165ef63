package realtime

import (
	"sync"

	"github.com/renewloop/ewaste-repair-api/models"
	"gorm.io/gorm"
)

// SessionMirror is a per-session materialized view of the repair requests
// visible to one actor, kept consistent with the store by applying change
// feed events. All events flow through a single reducer goroutine so the
// mirror never sees partial updates.
type SessionMirror struct {
	db       *gorm.DB
	actor    *models.Profile
	notifier *Notifier

	mu        sync.RWMutex
	repairs   []uint
	rows      map[uint]*models.RepairRequest
	confirmed map[uint]models.RepairRequest // last store-confirmed snapshot per row
	pending   map[uint]string               // repair id -> optimistically applied status
	stale     map[uint]bool                 // update threads needing a refetch
	newFlag   bool                          // technician view: unseen incoming request

	sub  *Subscription
	done chan struct{}
}

// NewSessionMirror creates a mirror for the actor's session
func NewSessionMirror(db *gorm.DB, actor *models.Profile, notifier *Notifier) *SessionMirror {
	return &SessionMirror{
		db:        db,
		actor:     actor,
		notifier:  notifier,
		rows:      make(map[uint]*models.RepairRequest),
		confirmed: make(map[uint]models.RepairRequest),
		pending:   make(map[uint]string),
		stale:     make(map[uint]bool),
	}
}

// Load performs the initial fetch: requesters see their own requests,
// technicians see unassigned requests plus their own assignments, newest
// first.
func (m *SessionMirror) Load() error {
	query := m.db.Preload("User").Preload("Technician").Order("created_at DESC")
	if m.actor.IsTechnician() {
		query = query.Where("technician_id IS NULL OR technician_id = ?", m.actor.ID)
	} else {
		query = query.Where("user_id = ?", m.actor.ID)
	}

	var repairs []models.RepairRequest
	if err := query.Find(&repairs).Error; err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Rebuild from scratch so rows that left the actor's view are dropped,
	// not just removed from the ordering.
	m.repairs = m.repairs[:0]
	m.rows = make(map[uint]*models.RepairRequest, len(repairs))
	m.confirmed = make(map[uint]models.RepairRequest, len(repairs))
	for i := range repairs {
		row := repairs[i]
		m.repairs = append(m.repairs, row.ID)
		m.rows[row.ID] = &row
		m.confirmed[row.ID] = row
	}
	for id := range m.pending {
		if _, ok := m.rows[id]; !ok {
			delete(m.pending, id)
		}
	}
	for id := range m.stale {
		if _, ok := m.rows[id]; !ok {
			delete(m.stale, id)
		}
	}
	return nil
}

// Start subscribes to the feed and launches the reducer. Call Stop at
// session teardown or the subscription leaks.
func (m *SessionMirror) Start(feed *Feed) {
	m.sub = feed.Subscribe()
	m.done = make(chan struct{})

	go func() {
		defer close(m.done)
		for event := range m.sub.C {
			m.apply(event)
		}
	}()
}

// Stop unsubscribes from the feed and waits for the reducer to drain
func (m *SessionMirror) Stop() {
	if m.sub == nil {
		return
	}
	m.sub.Close()
	<-m.done
	m.sub = nil
}

// Repairs returns a snapshot of the mirrored rows, newest first
func (m *SessionMirror) Repairs() []models.RepairRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.RepairRequest, 0, len(m.repairs))
	for _, id := range m.repairs {
		if row, ok := m.rows[id]; ok {
			out = append(out, *row)
		}
	}
	return out
}

// Get returns the mirrored row by id
func (m *SessionMirror) Get(repairID uint) (models.RepairRequest, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	row, ok := m.rows[repairID]
	if !ok {
		return models.RepairRequest{}, false
	}
	return *row, true
}

// ApplyOptimistic applies a local status change ahead of remote
// confirmation. The confirmed snapshot is kept so a failed remote call can
// roll the row back and so the echoed feed event is not mistaken for a fresh
// remote transition.
func (m *SessionMirror) ApplyOptimistic(repairID uint, newStatus string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[repairID]
	if !ok {
		return
	}
	m.pending[repairID] = newStatus
	row.Status = newStatus
}

// ConfirmFailure rolls the optimistic change back to the last confirmed
// snapshot and raises an error alert.
func (m *SessionMirror) ConfirmFailure(repairID uint, message string) {
	m.mu.Lock()
	if _, ok := m.pending[repairID]; ok {
		delete(m.pending, repairID)
		if snapshot, ok := m.confirmed[repairID]; ok {
			restored := snapshot
			m.rows[repairID] = &restored
		}
	}
	m.mu.Unlock()

	m.notifier.Failure(message)
}

// ThreadStale reports whether the repair's update thread needs a refetch
func (m *SessionMirror) ThreadStale(repairID uint) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stale[repairID]
}

// RefreshThread refetches the repair's full update thread and clears the
// stale flag. Update events are never merged incrementally.
func (m *SessionMirror) RefreshThread(repairID uint) ([]models.RepairUpdate, error) {
	var updates []models.RepairUpdate
	if err := m.db.Where("repair_id = ?", repairID).
		Preload("Author").
		Order("created_at ASC").
		Find(&updates).Error; err != nil {
		return nil, err
	}

	m.mu.Lock()
	delete(m.stale, repairID)
	m.mu.Unlock()
	return updates, nil
}

// HasNewRequests reports the technician-view alert flag for unseen incoming
// requests, clearing it when consumed.
func (m *SessionMirror) HasNewRequests() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	flag := m.newFlag
	m.newFlag = false
	return flag
}

// apply is the single-threaded reducer for feed events
func (m *SessionMirror) apply(event Event) {
	switch event.Table {
	case models.RepairRequest{}.TableName():
		switch event.Type {
		case EventUpdate:
			if row, ok := event.New.(*models.RepairRequest); ok {
				m.applyRepairUpdate(row)
			}
		case EventInsert:
			if row, ok := event.New.(*models.RepairRequest); ok {
				m.applyRepairInsert(row)
			}
		}
	case models.RepairUpdate{}.TableName():
		if event.Type == EventInsert {
			if update, ok := event.New.(*models.RepairUpdate); ok {
				m.applyThreadInsert(update)
			}
		}
	}
}

func (m *SessionMirror) applyRepairUpdate(incoming *models.RepairRequest) {
	m.mu.Lock()

	row, ok := m.rows[incoming.ID]
	if !ok {
		m.mu.Unlock()
		return
	}

	expected, echo := m.pending[incoming.ID]
	statusChanged := false
	if echo && incoming.Status == expected {
		// Echo of our own optimistic mutation: merge silently.
		delete(m.pending, incoming.ID)
	} else {
		confirmedStatus := row.Status
		if snapshot, ok := m.confirmed[incoming.ID]; ok {
			confirmedStatus = snapshot.Status
		}
		statusChanged = incoming.Status != confirmedStatus
	}

	// Field-level merge, last writer wins by arrival order.
	merged := *incoming
	m.rows[incoming.ID] = &merged
	m.confirmed[incoming.ID] = merged
	m.mu.Unlock()

	if statusChanged {
		m.notifier.StatusChanged(incoming.Status)
	}
}

func (m *SessionMirror) applyRepairInsert(incoming *models.RepairRequest) {
	// Only technician sessions watch for incoming requests; requesters
	// already hold their own rows from the optimistic create path.
	if !m.actor.IsTechnician() {
		return
	}

	m.mu.Lock()
	if _, exists := m.rows[incoming.ID]; exists {
		m.mu.Unlock()
		return
	}
	merged := *incoming
	m.rows[incoming.ID] = &merged
	m.confirmed[incoming.ID] = merged
	m.repairs = append([]uint{incoming.ID}, m.repairs...)
	m.newFlag = true
	m.mu.Unlock()

	m.notifier.NewRequest(incoming.DeviceType)
}

func (m *SessionMirror) applyThreadInsert(update *models.RepairUpdate) {
	m.mu.Lock()
	_, inView := m.rows[update.RepairID]
	if inView {
		m.stale[update.RepairID] = true
	}
	m.mu.Unlock()

	if inView {
		m.notifier.ThreadActivity()
	}
}
