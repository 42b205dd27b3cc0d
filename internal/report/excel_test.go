package report

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"clinichat/internal/models"
)

type fakeSource struct {
	byDate map[string][]models.Booking
	err    error
}

func (f *fakeSource) FindByDate(ctx context.Context, date string) ([]models.Booking, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byDate[date], nil
}

func TestDayReport(t *testing.T) {
	src := &fakeSource{byDate: map[string][]models.Booking{
		"2026-09-01": {
			{
				ID: "APPT-20260901100000-AB1", Date: "2026-09-01",
				StartTime: "10:00", EndTime: "10:30",
				AppointmentType: models.GeneralConsultation,
				PatientName:     "Maria Garcia", PatientPhone: "555-123-4567",
				PatientEmail: "maria@example.com", Reason: "sore throat",
				Status: models.StatusConfirmed, ConfirmationCode: "AB12CD",
			},
			{
				ID: "APPT-20260901140000-CD2", Date: "2026-09-01",
				StartTime: "14:00", EndTime: "14:15",
				AppointmentType: models.FollowUp,
				PatientName:     "John Smith", PatientPhone: "555-987-6543",
				PatientEmail: "john@example.com",
				Status:       models.StatusCancelled, ConfirmationCode: "EF34GH",
			},
		},
	}}
	g := NewGenerator(src)

	var buf bytes.Buffer
	require.NoError(t, g.Day(context.Background(), "2026-09-01", &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, []string{"2026-09-01"}, f.GetSheetList())

	rows, err := f.GetRows("2026-09-01")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Time", "Patient", "Phone", "Email", "Type", "Reason", "Status", "Code"}, rows[0])
	assert.Equal(t, "10:00-10:30", rows[1][0])
	assert.Equal(t, "Maria Garcia", rows[1][1])
	assert.Equal(t, "AB12CD", rows[1][7])
	assert.Equal(t, "cancelled", rows[2][6])
}

func TestRangeReportOneSheetPerDate(t *testing.T) {
	src := &fakeSource{byDate: map[string][]models.Booking{
		"2026-09-02": {{
			ID: "APPT-20260902090000-XY9", Date: "2026-09-02",
			StartTime: "09:00", EndTime: "09:30",
			AppointmentType: models.GeneralConsultation,
			PatientName:     "Maria Garcia",
			Status:          models.StatusConfirmed, ConfirmationCode: "AB12CD",
		}},
	}}
	g := NewGenerator(src)

	var buf bytes.Buffer
	require.NoError(t, g.Range(context.Background(), "2026-09-01", "2026-09-03", &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"2026-09-01", "2026-09-02", "2026-09-03"}, f.GetSheetList())

	// Empty dates still carry the header row.
	rows, err := f.GetRows("2026-09-01")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	rows, err = f.GetRows("2026-09-02")
	require.NoError(t, err)
	require.Len(t, rows, 2)
}

func TestRangeReportValidation(t *testing.T) {
	g := NewGenerator(&fakeSource{})

	var buf bytes.Buffer
	err := g.Range(context.Background(), "soon", "2026-09-03", &buf)
	assert.True(t, errors.Is(err, models.ErrValidationFailed))

	err = g.Range(context.Background(), "2026-09-03", "2026-09-01", &buf)
	assert.True(t, errors.Is(err, models.ErrValidationFailed))
}

func TestRangeReportSourceFailure(t *testing.T) {
	srcErr := errors.New("db closed")
	g := NewGenerator(&fakeSource{err: srcErr})

	var buf bytes.Buffer
	err := g.Day(context.Background(), "2026-09-01", &buf)
	assert.True(t, errors.Is(err, srcErr))
	assert.Zero(t, buf.Len(), "nothing written on failure")
}
