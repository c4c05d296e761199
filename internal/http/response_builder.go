package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"lihkab/internal/auth"
	"lihkab/internal/core"
	"lihkab/internal/log"
	"lihkab/internal/services"
)

// page is the data every template receives. Data holds the page specific
// view model.
type page struct {
	Title   string
	Active  string
	Session auth.Session
	Flash   string
	Error   string
	Fields  map[string]string
	Data    any
}

func newPage(r *http.Request, title, active string, data any) page {
	sess, _ := auth.FromContext(r.Context())
	return page{
		Title:   title,
		Active:  active,
		Session: sess,
		Flash:   flashMessages[r.URL.Query().Get("ok")],
		Data:    data,
	}
}

// flashMessages are shown after a redirect; only known keys render.
var flashMessages = map[string]string{
	"job_added":    "İş kaydı eklendi.",
	"jobs_saved":   "Değişiklikler kaydedildi.",
	"user_added":   "Kullanıcı eklendi.",
	"user_deleted": "Kullanıcı silindi.",
}

// render executes name into a buffer first so a template failure never
// leaves a half written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, p page) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, p); err != nil {
		s.structured.LogError(r.Context(), "Template execution failed", err, log.OpRender,
			log.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.UserAgent()))
		http.Error(w, "Sayfa oluşturulamadı.", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// failure is an error translated for the browser.
type failure struct {
	Status    int
	Message   string
	ErrorType string
	Fields    map[string]string
}

// classify maps service and gateway errors onto HTTP statuses and
// user-facing messages. Unrecognised errors are treated as a failing data
// source.
func classify(err error) failure {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		fields := make(map[string]string, len(verr.Fields))
		for _, f := range verr.Fields {
			fields[f.Field] = f.Message
		}
		return failure{http.StatusUnprocessableEntity, "Lütfen işaretli alanları düzeltin.", log.ErrorTypeValidation, fields}
	case errors.Is(err, core.ErrInvalidCredentials),
		errors.Is(err, core.ErrEmptyUsername),
		errors.Is(err, core.ErrEmptyPassword):
		return failure{Status: http.StatusUnauthorized, Message: "Kullanıcı adı veya şifre hatalı.", ErrorType: log.ErrorTypeAuth}
	case errors.Is(err, services.ErrConflict):
		return failure{Status: http.StatusConflict, Message: "Siz düzenlerken kayıtlar başka biri tarafından değiştirildi. Sayfayı yenileyip tekrar deneyin.", ErrorType: log.ErrorTypeConflict}
	case errors.Is(err, services.ErrForbidden):
		return failure{Status: http.StatusForbidden, Message: "Bu işlem için yönetici yetkisi gerekir.", ErrorType: log.ErrorTypeForbidden}
	case errors.Is(err, services.ErrSelfDelete):
		return failure{Status: http.StatusUnprocessableEntity, Message: "Kendi hesabınızı silemezsiniz.", ErrorType: log.ErrorTypeValidation}
	case errors.Is(err, services.ErrUserExists):
		return failure{Status: http.StatusUnprocessableEntity, Message: "Bu kullanıcı adı zaten kayıtlı.", ErrorType: log.ErrorTypeValidation}
	case errors.Is(err, services.ErrUserNotFound):
		return failure{Status: http.StatusNotFound, Message: "Kullanıcı bulunamadı.", ErrorType: log.ErrorTypeValidation}
	case errors.Is(err, context.DeadlineExceeded):
		return failure{Status: http.StatusBadGateway, Message: "Veri kaynağı zamanında yanıt vermedi.", ErrorType: log.ErrorTypeGateway}
	default:
		return failure{Status: http.StatusBadGateway, Message: "Veri kaynağına ulaşılamadı. Lütfen daha sonra tekrar deneyin.", ErrorType: log.ErrorTypeGateway}
	}
}

// fail logs err and renders the error page.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	f := classify(err)
	s.logFailure(r, op, err, f)
	p := newPage(r, "Hata", "", nil)
	p.Error = f.Message
	s.render(w, r, f.Status, "error.html", p)
}

func (s *Server) logFailure(r *http.Request, op string, err error, f failure) {
	logger := log.FromContext(r.Context())
	args := []any{log.FieldOperation, op, log.FieldError, err.Error(), "error_type", f.ErrorType, log.FieldStatusCode, f.Status}
	if f.Status >= 500 {
		logger.ErrorContext(r.Context(), "Request failed", args...)
		return
	}
	logger.WarnContext(r.Context(), "Request rejected", args...)
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDownload sends body as an attachment.
func writeDownload(w http.ResponseWriter, name, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// redirect answers a successful form post with a See Other to target.
func redirect(w http.ResponseWriter, r *http.Request, target string) {
	http.Redirect(w, r, target, http.StatusSeeOther)
}
