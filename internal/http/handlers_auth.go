package http

import (
	"net/http"

	"lihkab/internal/auth"
	"lihkab/internal/log"
)

type loginView struct {
	Username string
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.FromContext(r.Context()); ok {
		redirect(w, r, "/")
		return
	}
	s.render(w, r, http.StatusOK, "login.html", newPage(r, "Giriş", "login", loginView{}))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Geçersiz istek.", http.StatusBadRequest)
		return
	}
	username := sanitizeInput(r.PostForm.Get("username"))
	password := r.PostForm.Get("password")

	ctx, cancel := s.gatewayContext(r)
	defer cancel()
	user, err := s.users.Login(ctx, username, password)
	if err != nil {
		f := classify(err)
		if f.Status != http.StatusUnauthorized {
			s.fail(w, r, log.OpLogin, err)
			return
		}
		p := newPage(r, "Giriş", "login", loginView{Username: username})
		p.Error = f.Message
		s.render(w, r, http.StatusUnauthorized, "login.html", p)
		return
	}

	if _, err := s.sessions.SignIn(w, user.Username, user.Role); err != nil {
		s.structured.LogError(r.Context(), "Session could not be issued", err, log.OpLogin, nil)
		http.Error(w, "Oturum açılamadı.", http.StatusInternalServerError)
		return
	}
	redirect(w, r, "/")
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess, ok := auth.FromContext(r.Context()); ok {
		log.FromContext(r.Context()).InfoContext(r.Context(), "Logged out", log.FieldUsername, sess.Username)
	}
	s.sessions.SignOut(w)
	redirect(w, r, loginPath)
}
