package models

import (
	"time"
)

// Record versions. Version 0 records predate the per-slot reports map.
const (
	RecordVersionLegacy  = 0
	RecordVersionCurrent = 1
)

// ReportData is the normalized content of one generated report
type ReportData struct {
	IsMulti bool     `json:"isMulti"`
	Summary string   `json:"summary,omitempty"`
	Detail  string   `json:"detail,omitempty"`
	Details []string `json:"details,omitempty"`
	Titles  []string `json:"titles,omitempty"` // chapter titles, when the analysis API supplies them
}

// ReportSlot holds payment status and generated content for one report type
type ReportSlot struct {
	Paid        bool        `json:"paid"`
	Data        *ReportData `json:"data"`
	PurchasedAt *time.Time  `json:"purchasedAt,omitempty"`
}

// Generated reports whether the slot already has content
func (s ReportSlot) Generated() bool {
	return s.Data != nil
}

// RecordInput is the structured wizard input for the saju-based domains
type RecordInput struct {
	Name               string `json:"name"`
	BirthDate          string `json:"birthDate"`
	Gender             string `json:"gender"`
	Calendar           string `json:"calendar"` // solar or lunar
	BirthTime          string `json:"birthTime,omitempty"`
	RelationshipStatus string `json:"relationshipStatus,omitempty"`
	JobStatus          string `json:"jobStatus,omitempty"`
	Concern            string `json:"concern,omitempty"`
}

// LegacyFields are the top-level fields written before the reports map existed
type LegacyFields struct {
	Analyzed   bool        `json:"analyzed,omitempty"`
	Normalized *ReportData `json:"normalized,omitempty"`
	Summary    string      `json:"summary,omitempty"`
	Detail     string      `json:"detail,omitempty"`
}

// Empty reports whether no legacy field is set
func (l *LegacyFields) Empty() bool {
	return l == nil || (!l.Analyzed && l.Normalized == nil && l.Summary == "" && l.Detail == "")
}

// AnalysisRecord is the persisted session state for one feature domain
type AnalysisRecord struct {
	ID          string                `json:"id"`
	Store       string                `json:"store"`
	Version     int                   `json:"version"`
	ImageBase64 string                `json:"imageBase64,omitempty"`
	Features    string                `json:"features,omitempty"`
	Input       *RecordInput          `json:"input,omitempty"`
	Reports     map[string]ReportSlot `json:"reports"`
	Paid        bool                  `json:"paid"` // legacy, superseded by Reports[*].Paid
	Legacy      *LegacyFields         `json:"legacy,omitempty"`
	CreatedAt   time.Time             `json:"createdAt"`
}

// Slot returns the report slot for the given type, zero value when absent
func (r *AnalysisRecord) Slot(reportType string) ReportSlot {
	if r.Reports == nil {
		return ReportSlot{}
	}
	return r.Reports[reportType]
}

// HasPayload reports whether the record carries anything the analysis API can work from
func (r *AnalysisRecord) HasPayload() bool {
	return r.Features != "" || r.Input != nil
}

// EnsureReports fills a slot for every report type of the domain.
// It returns true when the record was changed.
func (r *AnalysisRecord) EnsureReports(d Domain) bool {
	changed := false
	if r.Reports == nil {
		r.Reports = make(map[string]ReportSlot, len(d.Types))
		changed = true
	}
	for _, t := range d.Types {
		if _, ok := r.Reports[t.Key]; !ok {
			r.Reports[t.Key] = ReportSlot{}
			changed = true
		}
	}
	return changed
}

// Clone returns a copy whose reports map can be modified independently
func (r *AnalysisRecord) Clone() *AnalysisRecord {
	if r == nil {
		return nil
	}
	out := *r
	if r.Reports != nil {
		out.Reports = make(map[string]ReportSlot, len(r.Reports))
		for k, v := range r.Reports {
			out.Reports[k] = v
		}
	}
	if r.Input != nil {
		in := *r.Input
		out.Input = &in
	}
	if r.Legacy != nil {
		legacy := *r.Legacy
		out.Legacy = &legacy
	}
	return &out
}

// NewReportSkeleton builds the empty reports map for a domain
func NewReportSkeleton(d Domain) map[string]ReportSlot {
	reports := make(map[string]ReportSlot, len(d.Types))
	for _, t := range d.Types {
		reports[t.Key] = ReportSlot{}
	}
	return reports
}
