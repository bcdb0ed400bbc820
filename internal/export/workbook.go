package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/soraally1/glucovision/internal/models"
)

const (
	MeasurementSheet = "Measurements"
	SignalSheet      = "Signals"
	ContentType      = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// MeasurementHeader 测量汇总表头
var MeasurementHeader = []string{
	"Measurement ID",
	"Device ID",
	"Glucose (mg/dL)",
	"BPM",
	"Confidence",
	"Calibrated",
	"Samples",
	"Created At",
}

var columnWidths = []float64{38, 20, 16, 8, 12, 12, 10, 20}

// MeasurementWorkbook 生成测量数据集 xlsx
// Measurements 表每行一次测量，Signals 表每行为该测量的脉搏波（A 列为 ID）
func MeasurementWorkbook(records []*models.MeasurementRecord) ([]byte, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(MeasurementSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if _, err := f.NewSheet(SignalSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	if err := writeHeader(f); err != nil {
		f.Close()
		return nil, err
	}

	for i, rec := range records {
		row := i + 2
		values := []any{
			rec.ID,
			rec.DeviceID,
			rec.Glucose,
			rec.BPM,
			rec.Confidence,
			yesNo(rec.IsCalibrated),
			len(rec.RawSignal),
			rec.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		}
		if err := setRow(f, MeasurementSheet, row, values); err != nil {
			f.Close()
			return nil, err
		}

		signal := make([]any, 0, len(rec.RawSignal)+1)
		signal = append(signal, rec.ID)
		for _, v := range rec.RawSignal {
			signal = append(signal, v)
		}
		if err := setRow(f, SignalSheet, i+1, signal); err != nil {
			f.Close()
			return nil, err
		}
	}

	// 冻结表头
	if err := f.SetPanes(MeasurementSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	return buf.Bytes(), nil
}

func writeHeader(f *excelize.File) error {
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	header := make([]any, len(MeasurementHeader))
	for i, h := range MeasurementHeader {
		header[i] = h
	}
	if err := setRow(f, MeasurementSheet, 1, header); err != nil {
		return err
	}

	last, err := excelize.CoordinatesToCellName(len(MeasurementHeader), 1)
	if err != nil {
		return fmt.Errorf("failed to convert coordinates: %w", err)
	}
	if err := f.SetCellStyle(MeasurementSheet, "A1", last, style); err != nil {
		return fmt.Errorf("failed to set header style: %w", err)
	}

	for i, width := range columnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(MeasurementSheet, col, col, width); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("failed to convert coordinates: %w", err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to set row %d on %s: %w", row, sheet, err)
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
