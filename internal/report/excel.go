// Package report renders appointment schedules as Excel workbooks for the
// front desk.
package report

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"clinichat/internal/models"
)

// BookingSource provides the bookings a report covers.
type BookingSource interface {
	FindByDate(ctx context.Context, date string) ([]models.Booking, error)
}

// Generator builds schedule workbooks.
type Generator struct {
	bookings BookingSource
}

// NewGenerator creates a report generator.
func NewGenerator(bookings BookingSource) *Generator {
	return &Generator{bookings: bookings}
}

var columns = []string{"Time", "Patient", "Phone", "Email", "Type", "Reason", "Status", "Code"}

// Day writes the schedule for one date as an xlsx workbook.
func (g *Generator) Day(ctx context.Context, date string, w io.Writer) error {
	return g.Range(ctx, date, date, w)
}

// Range writes one sheet per date in [from, to], inclusive.
func (g *Generator) Range(ctx context.Context, from, to string, w io.Writer) error {
	start, err := time.Parse("2006-01-02", from)
	if err != nil {
		return fmt.Errorf("%w: invalid from date %q", models.ErrValidationFailed, from)
	}
	end, err := time.Parse("2006-01-02", to)
	if err != nil {
		return fmt.Errorf("%w: invalid to date %q", models.ErrValidationFailed, to)
	}
	if end.Before(start) {
		return fmt.Errorf("%w: range ends before it starts", models.ErrValidationFailed)
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	first := true
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		date := day.Format("2006-01-02")
		sheet := date
		if first {
			f.SetSheetName("Sheet1", sheet)
			first = false
		} else if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("create sheet %s: %w", sheet, err)
		}

		bookings, err := g.bookings.FindByDate(ctx, date)
		if err != nil {
			return fmt.Errorf("load bookings for %s: %w", date, err)
		}
		if err := writeSheet(f, sheet, headerStyle, bookings); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, headerStyle int, bookings []models.Booking) error {
	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, col); err != nil {
			return err
		}
	}
	startCell, _ := excelize.CoordinatesToCellName(1, 1)
	endCell, _ := excelize.CoordinatesToCellName(len(columns), 1)
	_ = f.SetCellStyle(sheet, startCell, endCell, headerStyle)

	for row, b := range bookings {
		values := []any{
			b.StartTime + "-" + b.EndTime,
			b.PatientName,
			b.PatientPhone,
			b.PatientEmail,
			string(b.AppointmentType),
			b.Reason,
			b.Status,
			b.ConfirmationCode,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}
	return nil
}
