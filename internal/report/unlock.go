package report

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fortune-report-api/internal/models"
	"fortune-report-api/pkg/logging"
)

var (
	ErrMissingID         = errors.New("record id is required")
	ErrUnknownReportType = errors.New("unknown report type")
	ErrRecordNotFound    = errors.New("analysis record not found")
	ErrMissingFeatures   = errors.New("record has no features to analyze")
	ErrGenerationFailed  = errors.New("report generation failed")
)

// Action is what the unlock decision asks the caller to do with a slot
type Action int

const (
	ActionRender Action = iota
	ActionPaywall
	ActionGenerate
)

func (a Action) String() string {
	switch a {
	case ActionRender:
		return "render"
	case ActionPaywall:
		return "paywall"
	case ActionGenerate:
		return "generate"
	}
	return "unknown"
}

// Decide is the unlock decision for one slot. The free type never sees the
// paywall; every other type needs paid=true before content is shown or generated.
func Decide(d models.Domain, reportType string, slot models.ReportSlot) Action {
	unlocked := slot.Paid || d.IsFree(reportType)
	switch {
	case slot.Data != nil && unlocked:
		return ActionRender
	case slot.Data == nil && unlocked:
		return ActionGenerate
	default:
		return ActionPaywall
	}
}

// State is the result of resolving a report request
type State string

const (
	StateReady      State = "ready"
	StatePaywalled  State = "paywalled"
	StateGenerating State = "generating" // another request holds the generation lock
)

// Store is the record persistence the machine needs
type Store interface {
	Get(ctx context.Context, id string) (*models.AnalysisRecord, error)
	Modify(ctx context.Context, id string, fn func(rec *models.AnalysisRecord)) (*models.AnalysisRecord, error)
	SaveReport(ctx context.Context, id, reportType string, data *models.ReportData, forcePaid bool) (*models.AnalysisRecord, error)
}

// GenerateRequest carries what the analysis API needs for one report
type GenerateRequest struct {
	Domain   models.Domain
	Type     models.ReportType
	RecordID string
	Features string
	Input    *models.RecordInput
}

// Generator produces report content remotely
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*models.ReportData, error)
}

// Locker guards a slot against concurrent generation. Release only removes
// the lock still held under the token Acquire returned.
type Locker interface {
	AcquireGenerationLock(ctx context.Context, store, id, reportType string) (token string, acquired bool, err error)
	ReleaseGenerationLock(ctx context.Context, store, id, reportType, token string) error
}

// Outcome is the resolved state of one report slot
type Outcome struct {
	State      State                  `json:"state"`
	ReportType string                 `json:"report_type"`
	Record     *models.AnalysisRecord `json:"-"`
	Slot       models.ReportSlot      `json:"slot"`
	Generated  bool                   `json:"generated"` // content was produced by this call
}

// Machine runs the unlock flow for one domain
type Machine struct {
	domain    models.Domain
	store     Store
	generator Generator
	locker    Locker
}

// Option configures a Machine
type Option func(*Machine)

// WithLocker enables the generation lock
func WithLocker(l Locker) Option {
	return func(m *Machine) {
		m.locker = l
	}
}

// NewMachine creates a machine for a domain
func NewMachine(d models.Domain, store Store, generator Generator, opts ...Option) *Machine {
	m := &Machine{domain: d, store: store, generator: generator}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Resolve loads the record, migrates it if needed, and renders, paywalls or
// generates the requested report. Running it again on an unchanged record
// makes no further remote calls or writes.
func (m *Machine) Resolve(ctx context.Context, id, reportType string) (*Outcome, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrMissingID
	}
	rt, ok := m.domain.ReportType(reportType)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownReportType, reportType)
	}

	rec, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrRecordNotFound
	}

	if Migrate(rec, m.domain) {
		// migrate the stored row, not the possibly cached copy
		migrated, err := m.store.Modify(ctx, rec.ID, func(r *models.AnalysisRecord) {
			Migrate(r, m.domain)
		})
		if err != nil {
			return nil, err
		}
		rec = migrated
		logging.Infof("Record normalized - store: %s, id: %s", m.domain.Store, rec.ID)
	}

	slot := rec.Slot(rt.Key)
	switch Decide(m.domain, rt.Key, slot) {
	case ActionRender:
		return m.outcome(StateReady, rt.Key, rec, false), nil
	case ActionPaywall:
		return m.outcome(StatePaywalled, rt.Key, rec, false), nil
	}
	return m.generate(ctx, rec, rt)
}

func (m *Machine) generate(ctx context.Context, rec *models.AnalysisRecord, rt models.ReportType) (*Outcome, error) {
	if !rec.HasPayload() {
		return nil, ErrMissingFeatures
	}

	if m.locker != nil {
		token, acquired, err := m.locker.AcquireGenerationLock(ctx, m.domain.Store, rec.ID, rt.Key)
		switch {
		case err != nil:
			logging.Warnf("Generation lock unavailable, continuing without it - id: %s, type: %s, error: %v", rec.ID, rt.Key, err)
		case !acquired:
			return m.outcome(StateGenerating, rt.Key, rec, false), nil
		default:
			defer func() {
				if err := m.locker.ReleaseGenerationLock(context.WithoutCancel(ctx), m.domain.Store, rec.ID, rt.Key, token); err != nil {
					logging.Warnf("Failed to release generation lock - id: %s, type: %s, error: %v", rec.ID, rt.Key, err)
				}
			}()

			// the previous holder may have finished while we waited
			fresh, err := m.store.Get(ctx, rec.ID)
			if err != nil {
				return nil, err
			}
			if fresh != nil && fresh.Slot(rt.Key).Generated() {
				return m.outcome(StateReady, rt.Key, fresh, false), nil
			}
		}
	}

	logging.Infof("Generating report - store: %s, id: %s, type: %s", m.domain.Store, rec.ID, rt.Key)
	data, err := m.generator.Generate(ctx, GenerateRequest{
		Domain:   m.domain,
		Type:     rt,
		RecordID: rec.ID,
		Features: rec.Features,
		Input:    rec.Input,
	})
	if err != nil {
		logging.Errorf("Report generation failed - id: %s, type: %s, error: %v", rec.ID, rt.Key, err)
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	saved, err := m.store.SaveReport(ctx, rec.ID, rt.Key, data, m.domain.IsFree(rt.Key))
	if err != nil {
		return nil, err
	}
	// another writer may have stored content first; that content is kept
	generated := saved.Slot(rt.Key).Data == data
	if !generated {
		logging.Infof("Kept earlier report content - id: %s, type: %s", rec.ID, rt.Key)
	}
	return m.outcome(StateReady, rt.Key, saved, generated), nil
}

func (m *Machine) outcome(state State, reportType string, rec *models.AnalysisRecord, generated bool) *Outcome {
	return &Outcome{
		State:      state,
		ReportType: reportType,
		Record:     rec,
		Slot:       rec.Slot(reportType),
		Generated:  generated,
	}
}
