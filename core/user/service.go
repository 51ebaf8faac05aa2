package user

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/schoolrecords/sf10/core"
)

var (
	// errors
	ErrNotFound           = errors.New("user not found")
	ErrEmailExists        = errors.New("a user with this email already exists")
	ErrUsernameExists     = errors.New("a user with this username already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInactive           = errors.New("this account is pending activation or has been blocked")
)

type (
	Repository interface {
		// CheckUsernameUniqueness returns ErrUsernameExists or ErrEmailExists when another user holds them.
		CheckUsernameUniqueness(ctx context.Context, username, email string) error
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByUsernameOrEmail(ctx context.Context, username string) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields, ordered by name.
		QueryUsers(ctx context.Context, filter QueryFilter) ([]User, error)
		SetActive(ctx context.Context, id string, active bool, at time.Time) (User, error)
		SetPassword(ctx context.Context, id string, hash []byte, at time.Time) error
		SetLastLogin(ctx context.Context, id string, at time.Time) error
	}

	Service struct {
		repo     Repository
		sheets   core.SpreadsheetWriter
		validate *validator.Validate
	}
)

func NewService(repo Repository, sheets core.SpreadsheetWriter, validate *validator.Validate) *Service {
	return &Service{repo: repo, sheets: sheets, validate: validate}
}

func (svc *Service) checkUniqueness(ctx context.Context, uname, email string) error {
	if err := svc.repo.CheckUsernameUniqueness(ctx, uname, email); err != nil {
		var field string
		switch errors.Cause(err) {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return errors.Wrap(err, "checking username uniqueness")
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: errors.Cause(err).Error()})
	}
	return nil
}

// Create adds an active user.
func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	return svc.create(ctx, nu, true)
}

// Register adds an inactive teacher account awaiting activation by an admin.
func (svc *Service) Register(ctx context.Context, reg Registration) (User, error) {
	return svc.create(ctx, reg.NewUser(), false)
}

func (svc *Service) create(ctx context.Context, nu NewUser, active bool) (User, error) {
	if err := nu.Validate(svc.validate); err != nil {
		return User{}, err
	}
	if err := svc.checkUniqueness(ctx, nu.Username, nu.Email); err != nil {
		return User{}, err
	}

	now := time.Now().UTC()
	usr := User{
		ID:        uuid.New().String(),
		Name:      nu.Name,
		Username:  nu.Username,
		Email:     nu.Email,
		IsActive:  active,
		Roles:     nu.Roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if usr.IsTeacher() {
		usr.GradeLevel = nu.GradeLevel
		usr.Section = nu.Section
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr, err := svc.repo.CreateUser(ctx, usr)
	return usr, errors.Wrap(err, "creating user")
}

// Authenticate checks the credentials of an active user & records the login.
func (svc *Service) Authenticate(ctx context.Context, uname, pwd string) (User, error) {
	usr, err := svc.repo.GetUserByUsernameOrEmail(ctx, core.CleanString(uname, true /* lower */))
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrInvalidCredentials
		}
		return User{}, errors.Wrap(err, "getting user")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if !usr.IsActive {
		return User{}, ErrInactive
	}

	now := time.Now().UTC()
	if err = svc.repo.SetLastLogin(ctx, usr.ID, now); err != nil {
		return User{}, errors.Wrap(err, "setting last login")
	}
	usr.LastLogin = null.TimeFrom(now)
	return usr, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	usr, err := svc.repo.GetUserByID(ctx, strings.TrimSpace(id))
	return usr, errors.Wrap(err, "getting user")
}

func (svc *Service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	usr, err := svc.repo.GetUserByUsernameOrEmail(ctx, core.CleanString(uname, true /* lower */))
	return usr, errors.Wrap(err, "getting user")
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]User, error) {
	filter.Clean()
	users, err := svc.repo.QueryUsers(ctx, filter)
	return users, errors.Wrap(err, "querying users")
}

// SetActive activates a pending account or blocks/unblocks an existing one.
// Users cannot block themselves.
func (svc *Service) SetActive(ctx context.Context, sess core.Session, id string, active bool) (User, error) {
	if !sess.IsAdmin() {
		return User{}, core.ErrForbidden
	}
	id = strings.TrimSpace(id)
	if id == sess.UserID && !active {
		err := errors.New("you cannot block your own account")
		return User{}, core.NewValidationError(err, core.FieldError{Field: "is_active", Error: err.Error()})
	}
	usr, err := svc.repo.SetActive(ctx, id, active, time.Now().UTC())
	return usr, errors.Wrap(err, "setting user active")
}

// ResetPassword sets a new password for the user identified by username or email.
func (svc *Service) ResetPassword(ctx context.Context, uname, pwd string) error {
	usr, err := svc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	return errors.Wrap(svc.repo.SetPassword(ctx, usr.ID, usr.PasswordHash, time.Now().UTC()), "setting password")
}

// Export writes the filtered users as a workbook with a "Users" sheet.
func (svc *Service) Export(ctx context.Context, filter QueryFilter, w io.Writer) error {
	users, err := svc.Query(ctx, filter)
	if err != nil {
		return err
	}
	sheet := core.Sheet{
		Name:   "Users",
		Header: []string{"Name", "Username", "Email", "Role", "Grade Level", "Section", "Status", "Last Login"},
		Rows:   make([][]string, 0, len(users)),
	}
	for _, u := range users {
		role := "Teacher"
		if u.IsAdmin() {
			role = "Admin"
		}
		status := "Active"
		if !u.IsActive {
			status = "Inactive"
		}
		var lastLogin string
		if u.LastLogin.Valid {
			lastLogin = u.LastLogin.Time.Format("01/02/2006 15:04")
		}
		sheet.Rows = append(sheet.Rows, []string{
			u.Name, u.Username, u.Email, role, u.GradeLevel, u.Section, status, lastLogin,
		})
	}
	return errors.Wrap(svc.sheets.WriteSheets(w, sheet), "writing users workbook")
}
