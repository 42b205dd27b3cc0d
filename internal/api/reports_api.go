package api

import (
	"bytes"
	"fmt"
	"net/http"
	"time"
)

// handleDayReport streams the schedule for a date as an xlsx workbook.
// GET /api/reports/day?date=YYYY-MM-DD (optional to=YYYY-MM-DD for a range)
func (s *HTTPServer) handleDayReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	date := r.URL.Query().Get("date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		writeError(w, http.StatusBadRequest, "invalid date; expected YYYY-MM-DD")
		return
	}

	to := r.URL.Query().Get("to")
	if to == "" {
		to = date
	} else if _, err := time.Parse("2006-01-02", to); err != nil {
		writeError(w, http.StatusBadRequest, "invalid to date; expected YYYY-MM-DD")
		return
	}

	// Build into a buffer first so a failure mid-report cannot corrupt the response.
	var buf bytes.Buffer
	if err := s.reports.Range(r.Context(), date, to, &buf); err != nil {
		writeDomainError(w, err)
		return
	}

	name := fmt.Sprintf("schedule-%s.xlsx", date)
	if to != date {
		name = fmt.Sprintf("schedule-%s_%s.xlsx", date, to)
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
