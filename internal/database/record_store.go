package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"fortune-report-api/internal/models"
	"fortune-report-api/pkg/logging"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrRecordNotFound   = errors.New("record not found")
	ErrStoreUnavailable = errors.New("record store unavailable")
)

// RecordStore is the record table scoped to one logical store (one per feature domain)
type RecordStore struct {
	db    *gorm.DB
	store string
	cache RecordCache

	mu     sync.Mutex
	opened bool
}

// RecordPatch holds the fields Update merges into an existing record.
// Reports is merged per key; slots not named are left untouched.
type RecordPatch struct {
	ImageBase64 *string
	Features    *string
	Input       *models.RecordInput
	Paid        *bool
	Reports     map[string]models.ReportSlot
}

// NewRecordStore creates a store; cache may be nil
func NewRecordStore(db *gorm.DB, store string, cache RecordCache) *RecordStore {
	// a typed nil pointer must not end up inside the interface
	if c, ok := cache.(*RedisRecordCache); ok && c == nil {
		cache = nil
	}
	return &RecordStore{db: db, store: store, cache: cache}
}

// Name returns the logical store name
func (s *RecordStore) Name() string {
	return s.store
}

// Open prepares the underlying table. Safe to call repeatedly and concurrently.
func (s *RecordStore) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.opened {
		return nil
	}
	if s.db == nil {
		return fmt.Errorf("%w: no database handle", ErrStoreUnavailable)
	}
	if err := s.db.WithContext(ctx).AutoMigrate(&models.AnalysisRecordRow{}); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	s.opened = true
	return nil
}

// Get returns the record, or nil without error when the id is unknown
func (s *RecordStore) Get(ctx context.Context, id string) (*models.AnalysisRecord, error) {
	if err := s.Open(ctx); err != nil {
		return nil, err
	}

	if s.cache != nil {
		rec, err := s.cache.GetRecord(ctx, s.store, id)
		if err != nil {
			logging.Warnf("Record cache read failed - store: %s, id: %s, error: %v", s.store, id, err)
		} else if rec != nil {
			return rec, nil
		}
	}

	var row models.AnalysisRecordRow
	err := s.db.WithContext(ctx).Where("store = ? AND id = ?", s.store, id).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	rec, err := recordFromRow(&row)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.AddRecord(ctx, rec); err != nil {
			logging.Warnf("Record cache fill failed - store: %s, id: %s, error: %v", s.store, id, err)
		}
	}
	return rec, nil
}

// Put upserts the whole record by id
func (s *RecordStore) Put(ctx context.Context, rec *models.AnalysisRecord) error {
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("record id is required")
	}
	if err := s.Open(ctx); err != nil {
		return err
	}

	rec.Store = s.store
	row, err := rowFromRecord(rec)
	if err != nil {
		return err
	}

	if err := upsertRow(s.db.WithContext(ctx), row); err != nil {
		return err
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = row.CreatedAt
	}

	s.writeThrough(ctx, rec)
	return nil
}

// Update reads the record, merges the patch and writes it back
func (s *RecordStore) Update(ctx context.Context, id string, patch RecordPatch) (*models.AnalysisRecord, error) {
	return s.Modify(ctx, id, func(rec *models.AnalysisRecord) {
		if patch.ImageBase64 != nil {
			rec.ImageBase64 = *patch.ImageBase64
		}
		if patch.Features != nil {
			rec.Features = *patch.Features
		}
		if patch.Input != nil {
			in := *patch.Input
			rec.Input = &in
		}
		if patch.Paid != nil {
			rec.Paid = rec.Paid || *patch.Paid
		}
		for key, slot := range patch.Reports {
			rec.Reports[key] = mergeSlot(rec.Reports[key], slot)
		}
	})
}

// SaveReport stores generated content for one slot. Existing content is kept,
// and paid only ever moves from false to true.
func (s *RecordStore) SaveReport(ctx context.Context, id, reportType string, data *models.ReportData, forcePaid bool) (*models.AnalysisRecord, error) {
	return s.Modify(ctx, id, func(rec *models.AnalysisRecord) {
		slot := rec.Reports[reportType]
		if slot.Data == nil {
			slot.Data = data
		}
		slot.Paid = slot.Paid || forcePaid
		rec.Reports[reportType] = slot
	})
}

// MarkPaid flips one slot to paid after a completed payment
func (s *RecordStore) MarkPaid(ctx context.Context, id, reportType string, at time.Time) (*models.AnalysisRecord, error) {
	return s.Modify(ctx, id, func(rec *models.AnalysisRecord) {
		slot := rec.Reports[reportType]
		if !slot.Paid {
			slot.Paid = true
			slot.PurchasedAt = &at
		}
		rec.Reports[reportType] = slot
		rec.Paid = true
	})
}

// List returns the newest records first
func (s *RecordStore) List(ctx context.Context, limit int) ([]*models.AnalysisRecord, error) {
	if err := s.Open(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	var rows []models.AnalysisRecordRow
	err := s.db.WithContext(ctx).
		Where("store = ?", s.store).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	records := make([]*models.AnalysisRecord, 0, len(rows))
	for i := range rows {
		rec, err := recordFromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Modify applies fn to the stored record and writes it back in one
// transaction. The row is read from the database under a row lock, never
// from the cache, so concurrent writers cannot undo each other's slots.
func (s *RecordStore) Modify(ctx context.Context, id string, fn func(rec *models.AnalysisRecord)) (*models.AnalysisRecord, error) {
	if err := s.Open(ctx); err != nil {
		return nil, err
	}

	var updated *models.AnalysisRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.AnalysisRecordRow
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("store = ? AND id = ?", s.store, id).
			Take(&row).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRecordNotFound
			}
			return fmt.Errorf("failed to get record: %w", err)
		}

		rec, err := recordFromRow(&row)
		if err != nil {
			return err
		}
		if rec.Reports == nil {
			rec.Reports = make(map[string]models.ReportSlot)
		}
		fn(rec)

		next, err := rowFromRecord(rec)
		if err != nil {
			return err
		}
		if err := upsertRow(tx, next); err != nil {
			return err
		}
		updated = rec
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.writeThrough(ctx, updated)
	return updated, nil
}

// writeThrough replaces the cached copy after a write. If that fails the
// entry is dropped so readers fall back to the table.
func (s *RecordStore) writeThrough(ctx context.Context, rec *models.AnalysisRecord) {
	if s.cache == nil {
		return
	}
	err := s.cache.SetRecord(ctx, rec)
	if err == nil {
		return
	}
	logging.Warnf("Record cache write failed - store: %s, id: %s, error: %v", s.store, rec.ID, err)
	if err := s.cache.DeleteRecord(ctx, s.store, rec.ID); err != nil {
		logging.Errorf("Record cache invalidation failed, entry may be stale - store: %s, id: %s, error: %v", s.store, rec.ID, err)
	}
}

func upsertRow(db *gorm.DB, row *models.AnalysisRecordRow) error {
	if err := db.Clauses(clause.OnConflict{UpdateAll: true}).Create(row).Error; err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	return nil
}

// mergeSlot never clears content or payment already recorded
func mergeSlot(current, next models.ReportSlot) models.ReportSlot {
	merged := next
	merged.Paid = current.Paid || next.Paid
	if merged.Data == nil {
		merged.Data = current.Data
	}
	if merged.PurchasedAt == nil {
		merged.PurchasedAt = current.PurchasedAt
	}
	return merged
}

func rowFromRecord(rec *models.AnalysisRecord) (*models.AnalysisRecordRow, error) {
	row := &models.AnalysisRecordRow{
		Store:       rec.Store,
		ID:          rec.ID,
		Version:     rec.Version,
		ImageBase64: rec.ImageBase64,
		Features:    rec.Features,
		Paid:        rec.Paid,
		CreatedAt:   rec.CreatedAt,
	}

	var err error
	if row.Reports, err = marshalJSON(rec.Reports); err != nil {
		return nil, fmt.Errorf("failed to encode reports: %w", err)
	}
	if rec.Input != nil {
		if row.Input, err = marshalJSON(rec.Input); err != nil {
			return nil, fmt.Errorf("failed to encode input: %w", err)
		}
	}
	if !rec.Legacy.Empty() {
		if row.Legacy, err = marshalJSON(rec.Legacy); err != nil {
			return nil, fmt.Errorf("failed to encode legacy fields: %w", err)
		}
	}
	return row, nil
}

func recordFromRow(row *models.AnalysisRecordRow) (*models.AnalysisRecord, error) {
	rec := &models.AnalysisRecord{
		ID:          row.ID,
		Store:       row.Store,
		Version:     row.Version,
		ImageBase64: row.ImageBase64,
		Features:    row.Features,
		Paid:        row.Paid,
		CreatedAt:   row.CreatedAt,
	}

	if len(row.Reports) > 0 {
		if err := json.Unmarshal(row.Reports, &rec.Reports); err != nil {
			return nil, fmt.Errorf("failed to decode reports: %w", err)
		}
	}
	if len(row.Input) > 0 {
		if err := json.Unmarshal(row.Input, &rec.Input); err != nil {
			return nil, fmt.Errorf("failed to decode input: %w", err)
		}
	}
	if len(row.Legacy) > 0 {
		if err := json.Unmarshal(row.Legacy, &rec.Legacy); err != nil {
			return nil, fmt.Errorf("failed to decode legacy fields: %w", err)
		}
	}
	return rec, nil
}

func marshalJSON(v interface{}) (datatypes.JSON, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(data), nil
}
