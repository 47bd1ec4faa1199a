package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fortune-report-api/internal/database"
	"fortune-report-api/internal/models"
	"fortune-report-api/pkg/logging"

	"github.com/google/uuid"
)

var (
	ErrUnknownDomain = errors.New("unknown domain")
	ErrInvalidInput  = errors.New("invalid record input")
)

// FeatureExtractor turns a face photo into the feature text reports are generated from
type FeatureExtractor interface {
	ExtractFeatures(ctx context.Context, imageBase64 string) (string, error)
}

// CreateRecordRequest is the wizard submission
type CreateRecordRequest struct {
	ImageBase64 string              `json:"image_base64"`
	Features    string              `json:"features"`
	Input       *models.RecordInput `json:"input"`
}

// RecordService creates and reads analysis records across domains
type RecordService struct {
	stores    map[string]*database.RecordStore // keyed by domain name
	extractor FeatureExtractor
}

// NewRecordService creates a new record service. extractor may be nil, in
// which case image-only submissions are rejected.
func NewRecordService(stores map[string]*database.RecordStore, extractor FeatureExtractor) *RecordService {
	return &RecordService{stores: stores, extractor: extractor}
}

// Store returns the record store and catalog entry for a domain
func (s *RecordService) Store(domain string) (models.Domain, *database.RecordStore, error) {
	d, ok := models.LookupDomain(domain)
	if !ok {
		return models.Domain{}, nil, fmt.Errorf("%w: %q", ErrUnknownDomain, domain)
	}
	store, ok := s.stores[d.Name]
	if !ok {
		return models.Domain{}, nil, fmt.Errorf("%w: %q has no store", ErrUnknownDomain, domain)
	}
	return d, store, nil
}

// Create validates the submission, extracts features when only a photo was
// given and persists a fresh record with an empty report skeleton
func (s *RecordService) Create(ctx context.Context, domain string, req CreateRecordRequest) (*models.AnalysisRecord, error) {
	d, store, err := s.Store(domain)
	if err != nil {
		return nil, err
	}
	if err := validateRequest(d, req); err != nil {
		return nil, err
	}

	features := strings.TrimSpace(req.Features)
	if d.RequiresImage() && features == "" {
		if s.extractor == nil {
			return nil, fmt.Errorf("%w: features are required", ErrInvalidInput)
		}
		if features, err = s.extractor.ExtractFeatures(ctx, req.ImageBase64); err != nil {
			logging.Errorf("Feature extraction failed - domain: %s, error: %v", d.Name, err)
			return nil, err
		}
	}

	rec := &models.AnalysisRecord{
		ID:          uuid.NewString(),
		Version:     models.RecordVersionCurrent,
		ImageBase64: req.ImageBase64,
		Features:    features,
		Input:       req.Input,
		Reports:     models.NewReportSkeleton(d),
		CreatedAt:   time.Now(),
	}
	if err := store.Put(ctx, rec); err != nil {
		return nil, err
	}

	logging.Infof("Record created - domain: %s, id: %s", d.Name, rec.ID)
	return rec, nil
}

// Get returns a record or database.ErrRecordNotFound
func (s *RecordService) Get(ctx context.Context, domain, id string) (*models.AnalysisRecord, error) {
	_, store, err := s.Store(domain)
	if err != nil {
		return nil, err
	}
	rec, err := store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, database.ErrRecordNotFound
	}
	return rec, nil
}

// List returns the newest records of a domain
func (s *RecordService) List(ctx context.Context, domain string, limit int) ([]*models.AnalysisRecord, error) {
	_, store, err := s.Store(domain)
	if err != nil {
		return nil, err
	}
	return store.List(ctx, limit)
}

func validateRequest(d models.Domain, req CreateRecordRequest) error {
	if d.RequiresImage() {
		if strings.TrimSpace(req.ImageBase64) == "" && strings.TrimSpace(req.Features) == "" {
			return fmt.Errorf("%w: image or features are required", ErrInvalidInput)
		}
		return nil
	}

	in := req.Input
	if in == nil {
		return fmt.Errorf("%w: input is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if _, err := time.Parse("2006-01-02", in.BirthDate); err != nil {
		return fmt.Errorf("%w: birthDate must be YYYY-MM-DD", ErrInvalidInput)
	}
	if in.Gender != "male" && in.Gender != "female" {
		return fmt.Errorf("%w: gender must be male or female", ErrInvalidInput)
	}
	if in.Calendar != "solar" && in.Calendar != "lunar" {
		return fmt.Errorf("%w: calendar must be solar or lunar", ErrInvalidInput)
	}
	if in.BirthTime != "" && in.BirthTime != "unknown" {
		if _, err := time.Parse("15:04", in.BirthTime); err != nil {
			return fmt.Errorf("%w: birthTime must be HH:MM", ErrInvalidInput)
		}
	}
	return nil
}
