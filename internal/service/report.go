package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// ReportService builds violation reports for the console
type ReportService struct {
	db *gorm.DB
}

// NewReportService creates a new report service
func NewReportService(db *gorm.DB) *ReportService {
	return &ReportService{db: db}
}

// violationReportRow is one exported line joined across the ledger, worker
// directory, and geofence directory
type violationReportRow struct {
	ID            uint       `gorm:"column:id"`
	WorkerName    string     `gorm:"column:worker_name"`
	GeofenceName  string     `gorm:"column:geofence_name"`
	ViolationType string     `gorm:"column:violation_type"`
	StartTime     time.Time  `gorm:"column:start_time"`
	EndTime       *time.Time `gorm:"column:end_time"`
	Latitude      float64    `gorm:"column:latitude"`
	Longitude     float64    `gorm:"column:longitude"`
}

// GenerateViolationReport exports ledger records in [start, end] as an XLSX
// workbook
func (s *ReportService) GenerateViolationReport(ctx context.Context, start, end time.Time, workerID uint) (*bytes.Buffer, error) {
	query := s.db.Table("violation_records AS v").
		Select("v.id, CONCAT(w.first_name, ' ', w.last_name) AS worker_name, g.name AS geofence_name, v.violation_type, v.start_time, v.end_time, p.latitude, p.longitude").
		Joins("JOIN workers w ON w.id = v.worker_id").
		Joins("JOIN geofences g ON g.id = v.geofence_id").
		Joins("JOIN position_records p ON p.id = v.position_record_id").
		Where("v.start_time >= ? AND v.start_time <= ?", start, end).
		Order("v.start_time DESC")

	if workerID != 0 {
		query = query.Where("v.worker_id = ?", workerID)
	}

	var rows []violationReportRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Violations"
	f.SetSheetName("Sheet1", sheetName)

	headers := []string{"ID", "Worker", "Geofence", "Type", "Started", "Ended", "Latitude", "Longitude"}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	rowNum := 2
	for _, row := range rows {
		ended := "open"
		if row.EndTime != nil {
			ended = row.EndTime.Format(time.RFC3339)
		}
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", rowNum), row.ID)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", rowNum), row.WorkerName)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", rowNum), row.GeofenceName)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", rowNum), row.ViolationType)
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", rowNum), row.StartTime.Format(time.RFC3339))
		f.SetCellValue(sheetName, fmt.Sprintf("F%d", rowNum), ended)
		f.SetCellValue(sheetName, fmt.Sprintf("G%d", rowNum), row.Latitude)
		f.SetCellValue(sheetName, fmt.Sprintf("H%d", rowNum), row.Longitude)
		rowNum++
	}

	f.SetColWidth(sheetName, "A", "A", 8)
	f.SetColWidth(sheetName, "B", "C", 25)
	f.SetColWidth(sheetName, "D", "D", 10)
	f.SetColWidth(sheetName, "E", "F", 24)
	f.SetColWidth(sheetName, "G", "H", 14)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}

	return &buf, nil
}
