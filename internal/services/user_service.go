package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"lihkab/internal/auth"
	"lihkab/internal/core"
	"lihkab/internal/log"
	"lihkab/internal/sheets"
)

// UserInput is a new user as submitted by the admin form.
type UserInput struct {
	Username string    `validate:"required,max=64,username"`
	Password string    `validate:"required,min=4"`
	Role     core.Role `validate:"role"`
}

// UserService authenticates against and manages the users table.
type UserService struct {
	gw       sheets.Gateway
	table    string
	validate *validator.Validate
	logger   *log.Logger
}

func NewUserService(gw sheets.Gateway, table string, logger *log.Logger) *UserService {
	if logger == nil {
		logger = log.Default()
	}
	return &UserService{
		gw:       gw,
		table:    table,
		validate: newValidator(),
		logger:   logger.WithComponent(log.ComponentUsers),
	}
}

func (s *UserService) load(ctx context.Context) ([]core.User, error) {
	t, err := s.gw.Read(ctx, s.table)
	if errors.Is(err, sheets.ErrTableNotFound) {
		s.logger.WarnContext(ctx, "Users table not found, treating as empty", log.FieldTable, s.table)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read users: %w", err)
	}
	return core.NormalizeUsers(t), nil
}

// Login checks the credentials against the users table and returns the
// matching user without its password.
func (s *UserService) Login(ctx context.Context, username, password string) (core.User, error) {
	users, err := s.load(ctx)
	if err != nil {
		return core.User{}, err
	}
	role, err := core.Authenticate(users, username, password)
	if err != nil {
		s.logger.WarnContext(ctx, "Login rejected",
			log.FieldUsername, strings.ToLower(strings.TrimSpace(username)),
			log.FieldOperation, log.OpLogin, log.FieldError, err)
		return core.User{}, err
	}
	u := core.User{Username: strings.ToLower(strings.TrimSpace(username)), Role: role}
	s.logger.InfoContext(ctx, "Login accepted", log.FieldUsername, u.Username, log.FieldRole, string(role))
	return u, nil
}

// List returns every user with passwords blanked. Admin only.
func (s *UserService) List(ctx context.Context, actor auth.Session) ([]core.User, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	users, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].Password = ""
	}
	return users, nil
}

// Add creates a user with a bcrypt-hashed password. Admin only.
func (s *UserService) Add(ctx context.Context, actor auth.Session, in UserInput) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	in.Username = strings.ToLower(strings.TrimSpace(in.Username))
	in.Password = strings.TrimSpace(in.Password)
	if in.Role == "" {
		in.Role = core.RoleUser
	}
	if err := check(s.validate, in); err != nil {
		return err
	}

	users, err := s.load(ctx)
	if err != nil {
		return err
	}
	if core.HasUser(users, in.Username) {
		return ErrUserExists
	}
	hash, err := core.HashPassword(in.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	users = core.AppendUser(users, core.User{Username: in.Username, Password: hash, Role: in.Role})
	if err := s.gw.Write(ctx, s.table, core.UsersToTable(users)); err != nil {
		return fmt.Errorf("write users: %w", err)
	}
	s.logger.InfoContext(ctx, "User added",
		log.FieldUsername, in.Username, log.FieldRole, string(in.Role), "by", actor.Username)
	return nil
}

// Delete removes a user. Admin only; admins cannot delete themselves.
func (s *UserService) Delete(ctx context.Context, actor auth.Session, username string) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	name := strings.ToLower(strings.TrimSpace(username))
	if name == actor.Username {
		return ErrSelfDelete
	}
	users, err := s.load(ctx)
	if err != nil {
		return err
	}
	if !core.HasUser(users, name) {
		return ErrUserNotFound
	}
	users = core.RemoveUser(users, name)
	if err := s.gw.Write(ctx, s.table, core.UsersToTable(users)); err != nil {
		return fmt.Errorf("write users: %w", err)
	}
	s.logger.InfoContext(ctx, "User deleted", log.FieldUsername, name, "by", actor.Username)
	return nil
}

// CreateUser adds a user without an acting session, for bootstrap tools.
func (s *UserService) CreateUser(ctx context.Context, in UserInput) error {
	return s.Add(ctx, auth.Session{Username: "system", Role: core.RoleAdmin}, in)
}
