package user

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/jckckids/backend/core"
)

var (
	// errors
	ErrNotFound    = errors.New("user not found")
	ErrEmailExists = errors.New("a user with this email already exists")
	ErrPhoneExists = errors.New("a user with this phone number already exists")
	ErrNotTeacher  = errors.New("user is not a teacher")
)

type (
	Repository interface {
		// CheckUniqueness fails with ErrEmailExists or ErrPhoneExists when another
		// user (not in excludedUsers) already holds the email or phone number.
		CheckUniqueness(ctx context.Context, email, phone string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		GetUserByPhone(ctx context.Context, phone string) (User, error)
		// FilterUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on name, email or phone.
		FilterUsers(ctx context.Context, filter QueryFilter) ([]User, error)
		UpdateUser(ctx context.Context, usr User, isActive *bool) (User, error)

		// teacher <-> roster assignment; idempotent add, no-op-safe remove
		AddAssignment(ctx context.Context, userID, kind, entityID string) error
		RemoveAssignment(ctx context.Context, userID, kind, entityID string) error

		// parent <-> child link; idempotent add
		AddChild(ctx context.Context, parentID, childID string) error
	}

	Service struct {
		repo     Repository
		mailSvc  core.EmailService
		conf     *core.Config
		syncMail bool // tests only
	}
)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{repo: repo, mailSvc: mailSvc, conf: conf}
}

func (svc *Service) CheckUniqueness(email, phone string, exclUsers ...User) error {
	if err := svc.repo.CheckUniqueness(context.Background(), email, phone, exclUsers...); err != nil {
		var field string
		switch err {
		case ErrEmailExists:
			field = "email"
		case ErrPhoneExists:
			field = "phoneNumber"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		FirstName:   nu.FirstName,
		LastName:    nu.LastName,
		Email:       nu.Email,
		PhoneNumber: nu.PhoneNumber,
		Role:        nu.Role,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) GetByPhone(ctx context.Context, phone string) (User, error) {
	return svc.repo.GetUserByPhone(ctx, core.CleanString(phone))
}

// GetTeacher fails with ErrNotFound for non-teacher users so that teacher
// endpoints cannot be used to probe other accounts.
func (svc *Service) GetTeacher(ctx context.Context, id string) (User, error) {
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if !usr.IsTeacher() {
		return User{}, ErrNotFound
	}
	return usr, nil
}

func (svc *Service) Filter(ctx context.Context, filter QueryFilter) ([]User, error) {
	return svc.repo.FilterUsers(ctx, filter)
}

func (svc *Service) QueryTeachers(ctx context.Context) ([]User, error) {
	active := true
	return svc.repo.FilterUsers(ctx, QueryFilter{Role: RoleTeacher, IsActive: &active})
}

func (svc *Service) QueryParents(ctx context.Context) ([]User, error) {
	active := true
	return svc.repo.FilterUsers(ctx, QueryFilter{Role: RoleParent, IsActive: &active})
}

func (svc *Service) Update(ctx context.Context, id string, uu UpdateUser) (User, error) {
	usr := User{
		ID:          id,
		FirstName:   uu.FirstName,
		LastName:    uu.LastName,
		PhoneNumber: uu.PhoneNumber,
		UpdatedAt:   time.Now().UTC(),
	}
	return svc.repo.UpdateUser(ctx, usr, uu.IsActive)
}

// Deactivate tombstones the user; attendance history keeps referencing them.
func (svc *Service) Deactivate(ctx context.Context, id string) (User, error) {
	inactive := false
	return svc.repo.UpdateUser(ctx, User{ID: id, UpdatedAt: time.Now().UTC()}, &inactive)
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, User{ID: usr.ID, LastLogin: usr.LastLogin}, nil)
}

func (svc *Service) ChangePassword(ctx context.Context, usr User, cp ChangePassword) error {
	if err := usr.CheckPassword(cp.CurrentPassword); err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "currentPassword", Error: "current password is incorrect"})
	}
	if err := usr.SetPassword(cp.NewPassword); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	_, err := svc.repo.UpdateUser(ctx, User{ID: usr.ID, PasswordHash: usr.PasswordHash, UpdatedAt: time.Now().UTC()}, nil)
	return err
}

// RequestPasswordReset emails a reset link to the account with the given email.
// The caller is expected to swallow ErrNotFound so attackers learn nothing.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if svc.syncMail {
		svc.sendPasswordResetMail(usr)
	} else {
		go svc.sendPasswordResetMail(usr)
	}
	return nil
}

func (svc *Service) ResetPassword(ctx context.Context, rp ResetUserPassword) error {
	uid, err := decodeUID(rp.UID)
	if err != nil {
		return core.NewValidationError(errInvalidToken)
	}
	usr, err := svc.repo.GetUserByID(ctx, uid)
	if err != nil {
		if err == ErrNotFound {
			return core.NewValidationError(errInvalidToken)
		}
		return errors.Wrap(err, "finding user by uid")
	}
	if err = svc.verifyToken(usr, rp.Token); err != nil {
		return core.NewValidationError(err)
	}
	if err = usr.SetPassword(rp.Password); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	_, err = svc.repo.UpdateUser(ctx, User{ID: usr.ID, PasswordHash: usr.PasswordHash, UpdatedAt: time.Now().UTC()}, nil)
	return err
}

func (svc *Service) sendPasswordResetMail(usr User) {
	token, err := svc.MakeToken(usr)
	if err != nil {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.FullName(), Address: usr.Email}},
		Subject:      "Password Reset Request",
		TemplateName: "password-reset",
		TemplateData: struct {
			FirstName string
			UID       string
			Token     string
			Timeout   string
		}{
			FirstName: usr.FirstName,
			UID:       EncodeUID(usr),
			Token:     token,
			Timeout:   fmt.Sprintf("%d days", int(svc.conf.PasswordResetTimeoutDelta/(24*time.Hour))),
		},
	})
}
