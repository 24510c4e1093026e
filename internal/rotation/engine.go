// ABOUTME: Round-robin assignment engine for single leads and communication-log batches
// ABOUTME: Loads the roster, advances the persisted cursor, writes leads, and emits events

package rotation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/2389/brokerage-crm/internal/events"
	"github.com/2389/brokerage-crm/internal/metrics"
	"github.com/2389/brokerage-crm/internal/store"
)

// CursorMode selects how the engine advances the rotation cursor.
type CursorMode string

const (
	// ModeReadWrite reads the cursor, writes the lead, then writes the cursor.
	// Concurrent calls can read the same cursor and assign the same agent.
	ModeReadWrite CursorMode = "read_write"

	// ModeAtomic advances the cursor in one store operation before the lead
	// write. A failed lead write still consumes the rotation slot.
	ModeAtomic CursorMode = "atomic"
)

// Valid reports whether m is a known mode.
func (m CursorMode) Valid() bool {
	return m == ModeReadWrite || m == ModeAtomic
}

// DefaultPublishTimeout bounds one assignment event publish.
const DefaultPublishTimeout = 5 * time.Second

// Store is the persistence the engine needs.
type Store interface {
	MemberLister
	SettingsStore
	AssignLeadAgent(ctx context.Context, leadID, agentName string) error
	CreateLead(ctx context.Context, lead *store.Lead) error
	GetCommunicationLogs(ctx context.Context, ids []string) ([]*store.CommunicationLog, error)
}

// Config holds the engine's dependencies.
type Config struct {
	Store      Store
	Publisher  events.Publisher // nil disables events
	Mode       CursorMode       // empty means ModeReadWrite
	SettingKey string           // empty means DefaultSettingKey
	Logger     *slog.Logger

	// PublishTimeout bounds each event publish. Zero means DefaultPublishTimeout.
	PublishTimeout time.Duration

	// Now and NewID are overridable for tests.
	Now   func() time.Time
	NewID func() string
}

// Engine assigns leads to agents in round-robin order.
// It holds no in-process lock; each call runs to completion on its own.
type Engine struct {
	store     Store
	roster    *Roster
	cursor    *CursorStore
	publisher events.Publisher
	mode      CursorMode
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string

	publishTimeout time.Duration
}

// AssignmentResult is the outcome of AssignLead.
type AssignmentResult struct {
	LeadID    string
	AgentID   string
	AgentName string
	Index     int
}

// CreatedLead is one lead created by AssignBatch.
type CreatedLead struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Agent string `json:"agent"`
}

// BatchResult is the outcome of AssignBatch.
type BatchResult struct {
	Leads   []CreatedLead
	Count   int
	Skipped int
}

// Message is the human-readable summary returned to callers.
func (r *BatchResult) Message() string {
	return fmt.Sprintf("Created %d new leads from selected logs", r.Count)
}

// Status describes the current rotation state.
type Status struct {
	Mode   CursorMode
	Roster []Agent
	Cursor int
	Next   *Agent // nil when the roster is empty
}

// NewEngine creates an Engine from cfg.
func NewEngine(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "rotation")

	mode := cfg.Mode
	if mode == "" {
		mode = ModeReadWrite
	}

	publisher := cfg.Publisher
	if publisher == nil {
		publisher = events.NewNopPublisher(logger)
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	newID := cfg.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	publishTimeout := cfg.PublishTimeout
	if publishTimeout <= 0 {
		publishTimeout = DefaultPublishTimeout
	}

	return &Engine{
		store:     cfg.Store,
		roster:    NewRoster(cfg.Store),
		cursor:    NewCursorStore(cfg.Store, cfg.SettingKey, logger),
		publisher: publisher,
		mode:      mode,
		logger:    logger,
		now:       now,
		newID:     newID,

		publishTimeout: publishTimeout,
	}
}

// Mode returns the engine's cursor mode.
func (e *Engine) Mode() CursorMode {
	return e.mode
}

// AssignLead gives an existing lead the next agent in rotation and marks it hot.
//
// In read_write mode the cursor is written only after the lead update
// succeeds. If that cursor write fails the assignment still succeeds and the
// next call repeats the same agent.
func (e *Engine) AssignLead(ctx context.Context, leadID string) (res *AssignmentResult, err error) {
	start := e.now()
	defer func() { e.observe(metrics.PathSingle, start, err) }()

	if leadID == "" {
		return nil, &ValidationError{Field: "lead_id", Err: errRequired}
	}

	agents, err := e.loadRoster(ctx)
	if err != nil {
		return nil, err
	}

	var next int
	if e.mode == ModeAtomic {
		next, err = e.cursor.Advance(ctx, len(agents))
		if err != nil {
			return nil, err
		}
	} else {
		cursor, err := e.cursor.Read(ctx)
		if err != nil {
			return nil, err
		}
		next = NextIndex(cursor, len(agents))
	}
	agent := agents[next]

	if err := e.store.AssignLeadAgent(ctx, leadID, agent.Name); err != nil {
		e.logger.Error("lead update failed", "lead_id", leadID, "agent", agent.Name, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrLeadUpdateFailed, err)
	}

	if e.mode == ModeReadWrite {
		e.persistCursor(ctx, next, "lead_id", leadID)
	}

	e.logger.Info("lead assigned", "lead_id", leadID, "agent", agent.Name, "index", next)
	metrics.AssignmentsTotal.WithLabelValues(metrics.PathSingle).Inc()
	e.publish(ctx, leadID, events.LeadAssigned{
		LeadID:    leadID,
		AgentID:   agent.ID,
		AgentName: agent.Name,
		Path:      metrics.PathSingle,
	})

	return &AssignmentResult{
		LeadID:    leadID,
		AgentID:   agent.ID,
		AgentName: agent.Name,
		Index:     next,
	}, nil
}

// AssignBatch turns communication logs into new leads, each assigned to the
// next agent in rotation.
//
// The roster and cursor are read once. Units are processed in input order; a
// unit whose insert fails is skipped without advancing the cursor. Each
// successful unit persists the cursor immediately, so earlier advances survive
// later failures.
func (e *Engine) AssignBatch(ctx context.Context, logIDs []string) (res *BatchResult, err error) {
	start := e.now()
	defer func() { e.observe(metrics.PathBatch, start, err) }()

	ids := dedupe(logIDs)
	if len(ids) == 0 {
		return nil, &ValidationError{Field: "log_ids", Err: errEmpty}
	}

	logs, err := e.store.GetCommunicationLogs(ctx, ids)
	if err != nil {
		e.logger.Error("fetching communication logs failed", "count", len(ids), "error", err)
		return nil, fmt.Errorf("%w: %w", ErrLogsUnavailable, err)
	}
	if len(logs) == 0 {
		return nil, ErrLogsUnavailable
	}
	logs = inInputOrder(logs, ids)

	agents, err := e.loadRoster(ctx)
	if err != nil {
		return nil, err
	}

	cursor := InitialCursor
	if e.mode == ModeReadWrite {
		if cursor, err = e.cursor.Read(ctx); err != nil {
			return nil, err
		}
	}

	batchID := e.newID()
	res = &BatchResult{Leads: []CreatedLead{}}

	for _, log := range logs {
		var next int
		if e.mode == ModeAtomic {
			n, err := e.cursor.Advance(ctx, len(agents))
			if err != nil {
				e.logger.Warn("skipping log: cursor advance failed", "log_id", log.ID, "error", err)
				res.Skipped++
				metrics.BatchSkippedTotal.Inc()
				continue
			}
			next = n
		} else {
			next = NextIndex(cursor, len(agents))
		}
		agent := agents[next]

		lead := MaterializeLead(log)
		now := e.now().UTC()
		lead.ID = e.newID()
		lead.AgentName = agent.Name
		lead.CreatedAt = now
		lead.UpdatedAt = now

		if err := e.store.CreateLead(ctx, lead); err != nil {
			e.logger.Warn("skipping log: lead insert failed", "log_id", log.ID, "agent", agent.Name, "error", err)
			res.Skipped++
			metrics.BatchSkippedTotal.Inc()
			continue
		}

		if e.mode == ModeReadWrite {
			e.persistCursor(ctx, next, "log_id", log.ID)
			cursor = next
		}

		res.Leads = append(res.Leads, CreatedLead{ID: lead.ID, Name: lead.Name, Agent: agent.Name})
		metrics.AssignmentsTotal.WithLabelValues(metrics.PathBatch).Inc()
		e.publish(ctx, batchID, events.LeadAssigned{
			LeadID:      lead.ID,
			LeadName:    lead.Name,
			AgentID:     agent.ID,
			AgentName:   agent.Name,
			Path:        metrics.PathBatch,
			SourceLogID: log.ID,
		})
	}

	res.Count = len(res.Leads)
	e.logger.Info("batch assigned",
		"requested", len(ids),
		"found", len(logs),
		"created", res.Count,
		"skipped", res.Skipped,
	)
	return res, nil
}

// Status reports the roster, stored cursor, and the agent the next assignment would get.
func (e *Engine) Status(ctx context.Context) (*Status, error) {
	agents, err := e.roster.ListRotationAgents(ctx)
	if err != nil {
		return nil, err
	}
	cursor, err := e.cursor.Read(ctx)
	if err != nil {
		return nil, err
	}

	st := &Status{Mode: e.mode, Roster: agents, Cursor: cursor}
	if len(agents) > 0 {
		next := agents[NextIndex(cursor, len(agents))]
		st.Next = &next
	}
	return st, nil
}

// ResetCursor puts the rotation back to its initial position.
func (e *Engine) ResetCursor(ctx context.Context) error {
	if err := e.cursor.Reset(ctx); err != nil {
		return err
	}
	e.logger.Info("rotation cursor reset", "key", e.cursor.Key())
	return nil
}

func (e *Engine) loadRoster(ctx context.Context) ([]Agent, error) {
	agents, err := e.roster.ListRotationAgents(ctx)
	if err != nil {
		e.logger.Error("loading roster failed", "error", err)
		return nil, err
	}
	if len(agents) == 0 {
		e.logger.Warn("no eligible agents in rotation")
		return nil, ErrNoEligibleAgents
	}
	return agents, nil
}

// persistCursor writes next and logs a failure without returning it.
func (e *Engine) persistCursor(ctx context.Context, next int, attrs ...any) {
	if err := e.cursor.Write(ctx, next); err != nil {
		metrics.CursorWriteFailuresTotal.Inc()
		e.logger.Error("cursor write failed; next assignment will repeat this agent",
			append(attrs, "index", next, "error", err)...)
	}
}

// publish runs detached from the caller's cancellation and bounded by publishTimeout.
func (e *Engine) publish(ctx context.Context, correlationID string, payload events.LeadAssigned) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.publishTimeout)
	defer cancel()

	env := events.NewEnvelope(events.TypeLeadAssigned, correlationID, payload)
	if err := e.publisher.Publish(ctx, events.TypeLeadAssigned, env); err != nil {
		e.logger.Warn("publishing assignment event failed", "lead_id", payload.LeadID, "error", err)
	}
}

func (e *Engine) observe(path string, start time.Time, err error) {
	metrics.AssignDurationSeconds.WithLabelValues(path).Observe(e.now().Sub(start).Seconds())
	if err != nil {
		metrics.ErrorsTotal.WithLabelValues(errorReason(err)).Inc()
	}
}

// dedupe drops empty and repeated ids, keeping first occurrence order.
func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// inInputOrder sorts logs to follow ids.
func inInputOrder(logs []*store.CommunicationLog, ids []string) []*store.CommunicationLog {
	byID := make(map[string]*store.CommunicationLog, len(logs))
	for _, l := range logs {
		byID[l.ID] = l
	}
	ordered := make([]*store.CommunicationLog, 0, len(logs))
	for _, id := range ids {
		if l, ok := byID[id]; ok {
			ordered = append(ordered, l)
		}
	}
	return ordered
}
