package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// BaseModel provides common fields for all database models
type BaseModel struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`
}

// AnalysisRecordRow is the storage shape of an AnalysisRecord.
// Every logical store shares the table; (store, id) is the primary key.
type AnalysisRecordRow struct {
	Store       string         `gorm:"primaryKey;size:32"`
	ID          string         `gorm:"primaryKey;size:64"`
	Version     int            `gorm:"not null"`
	ImageBase64 string         `gorm:"type:text"`
	Features    string         `gorm:"type:text"`
	Input       datatypes.JSON // RecordInput
	Reports     datatypes.JSON // map[string]ReportSlot
	Legacy      datatypes.JSON // LegacyFields
	Paid        bool
	CreatedAt   time.Time `gorm:"index"`
	UpdatedAt   time.Time
}

// TableName 테이블명 지정
func (AnalysisRecordRow) TableName() string {
	return "analysis_record"
}
