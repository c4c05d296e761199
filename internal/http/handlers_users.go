package http

import (
	"net/http"

	"lihkab/internal/auth"
	"lihkab/internal/core"
	"lihkab/internal/log"
	"lihkab/internal/services"
)

type usersView struct {
	Users []core.User
	Roles []core.Role
	Form  services.UserInput
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	s.renderUsers(w, r, http.StatusOK, services.UserInput{Role: core.RoleUser}, nil)
}

func (s *Server) handleAddUser(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Geçersiz istek.", http.StatusBadRequest)
		return
	}
	in := ParseUserInput(r.PostForm)
	sess, _ := auth.FromContext(r.Context())

	ctx, cancel := s.gatewayContext(r)
	defer cancel()
	if err := s.users.Add(ctx, sess, in); err != nil {
		s.userFailure(w, r, log.OpCreate, err, in)
		return
	}
	redirect(w, r, "/users?ok=user_added")
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Geçersiz istek.", http.StatusBadRequest)
		return
	}
	sess, _ := auth.FromContext(r.Context())

	ctx, cancel := s.gatewayContext(r)
	defer cancel()
	if err := s.users.Delete(ctx, sess, r.PostForm.Get("username")); err != nil {
		s.userFailure(w, r, log.OpDelete, err, services.UserInput{Role: core.RoleUser})
		return
	}
	redirect(w, r, "/users?ok=user_deleted")
}

// userFailure re-renders the users page for input problems and falls back
// to the error page otherwise.
func (s *Server) userFailure(w http.ResponseWriter, r *http.Request, op string, err error, in services.UserInput) {
	f := classify(err)
	if f.Status != http.StatusUnprocessableEntity && f.Status != http.StatusNotFound {
		s.fail(w, r, op, err)
		return
	}
	s.logFailure(r, op, err, f)
	in.Password = ""
	s.renderUsers(w, r, f.Status, in, &f)
}

func (s *Server) renderUsers(w http.ResponseWriter, r *http.Request, status int, form services.UserInput, f *failure) {
	sess, _ := auth.FromContext(r.Context())
	ctx, cancel := s.gatewayContext(r)
	defer cancel()

	users, err := s.users.List(ctx, sess)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	p := newPage(r, "Kullanıcı Yönetimi", "users", usersView{
		Users: users,
		Roles: []core.Role{core.RoleUser, core.RoleAdmin},
		Form:  form,
	})
	if f != nil {
		p.Error = f.Message
		p.Fields = f.Fields
	}
	s.render(w, r, status, "users.html", p)
}
