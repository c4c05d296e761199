package http

import (
	"net/http"

	"lihkab/internal/log"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.gatewayContext(r)
	defer cancel()

	d, err := s.jobs.Dashboard(ctx)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	s.render(w, r, http.StatusOK, "dashboard.html", newPage(r, "Ana Sayfa", "dashboard", d))
}

// monthlyPoint is one bar of the income chart.
type monthlyPoint struct {
	Month string  `json:"month"`
	Label string  `json:"label"`
	Total float64 `json:"total"`
}

// handleMonthlyIncome serves the paid totals per month for the chart,
// honouring the year, month and customer query filters.
func (s *Server) handleMonthlyIncome(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.gatewayContext(r)
	defer cancel()

	totals, err := s.jobs.MonthlyIncome(ctx, ParseFilter(r.URL.Query()))
	if err != nil {
		f := classify(err)
		s.logFailure(r, log.OpRead, err, f)
		writeJSON(w, f.Status, map[string]string{"error": f.Message})
		return
	}
	points := make([]monthlyPoint, 0, len(totals))
	for _, t := range totals {
		v, _ := t.Total.Float64()
		points = append(points, monthlyPoint{Month: t.Month, Label: monthKeyLabel(t.Month), Total: v})
	}
	writeJSON(w, http.StatusOK, points)
}
