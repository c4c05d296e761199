package http

import (
	"bytes"
	"net/http"

	"lihkab/internal/core"
	"lihkab/internal/log"
	"lihkab/internal/report"
	"lihkab/internal/services"
)

const (
	contentTypePDF  = "application/pdf"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// paymentsView adds the download links, which carry the active filter.
type paymentsView struct {
	services.PaymentsView
	MonthNames []string
	PDFURL     string
	XLSXURL    string
}

func (s *Server) handlePayments(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.gatewayContext(r)
	defer cancel()

	v, err := s.jobs.Payments(ctx, ParseFilter(r.URL.Query()))
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	view := paymentsView{
		PaymentsView: v,
		MonthNames:   monthNames(),
		PDFURL:       withQuery("/payments/pending.pdf", r.URL.RawQuery),
		XLSXURL:      withQuery("/payments/report.xlsx", r.URL.RawQuery),
	}
	s.render(w, r, http.StatusOK, "payments.html", newPage(r, "Ödeme Paneli", "payments", view))
}

func (s *Server) handlePendingPDF(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.gatewayContext(r)
	defer cancel()

	v, err := s.jobs.Payments(ctx, ParseFilter(r.URL.Query()))
	if err != nil {
		s.fail(w, r, log.OpExport, err)
		return
	}
	var buf bytes.Buffer
	if err := report.PendingPDF(&buf, v.Pending, s.now()); err != nil {
		s.structured.LogError(r.Context(), "Pending payments PDF failed", err, log.OpExport, nil)
		http.Error(w, "Rapor oluşturulamadı.", http.StatusInternalServerError)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Pending payments exported",
		log.FieldOperation, log.OpExport, log.FieldCount, len(v.Pending))
	writeDownload(w, report.PendingPDFName, contentTypePDF, buf.Bytes())
}

func (s *Server) handleReportXLSX(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.gatewayContext(r)
	defer cancel()

	v, err := s.jobs.Payments(ctx, ParseFilter(r.URL.Query()))
	if err != nil {
		s.fail(w, r, log.OpExport, err)
		return
	}
	var buf bytes.Buffer
	if err := report.JobsXLSX(&buf, v.Jobs); err != nil {
		s.structured.LogError(r.Context(), "Payments workbook failed", err, log.OpExport, nil)
		http.Error(w, "Rapor oluşturulamadı.", http.StatusInternalServerError)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Payments workbook exported",
		log.FieldOperation, log.OpExport, log.FieldCount, len(v.Jobs))
	writeDownload(w, report.JobsXLSXName, contentTypeXLSX, buf.Bytes())
}

func monthNames() []string {
	return append([]string(nil), core.MonthNames...)
}

func withQuery(path, rawQuery string) string {
	if rawQuery == "" {
		return path
	}
	return path + "?" + rawQuery
}
