package report

import (
	"fortune-report-api/internal/models"
)

// Migrate brings a record up to the current version in place and reports
// whether it changed. Legacy top-level results move into the free slot with
// paid forced true, and the legacy fields are dropped.
func Migrate(rec *models.AnalysisRecord, d models.Domain) bool {
	changed := rec.EnsureReports(d)

	if legacy := rec.Legacy; !legacy.Empty() {
		var data *models.ReportData
		switch {
		case legacy.Analyzed && legacy.Normalized != nil:
			data = legacy.Normalized
		case legacy.Summary != "" && legacy.Detail != "":
			data = &models.ReportData{IsMulti: false, Summary: legacy.Summary, Detail: legacy.Detail}
		}

		if data != nil {
			slot := rec.Reports[d.FreeType]
			if slot.Data == nil {
				slot.Data = data
			}
			slot.Paid = true
			rec.Reports[d.FreeType] = slot
		}
		rec.Legacy = nil
		changed = true
	}

	if rec.Version != models.RecordVersionCurrent {
		rec.Version = models.RecordVersionCurrent
		changed = true
	}
	return changed
}
