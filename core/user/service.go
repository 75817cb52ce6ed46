package user

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/asmaktab/backend/core"
)

var (
	// errors
	ErrNotFound     = errors.New("user not found")
	ErrEmailExists  = errors.New("a user with this email already exists")
	ErrInvalidCode  = errors.New("invalid referral code")
	ErrSelfReferral = errors.New("you cannot use your own referral code")
)

type (
	// GetFilter selects a single user by exactly one of its fields.
	GetFilter struct {
		ID           string
		Email        string
		ReferralCode string
	}

	// Repository is the user record store. Each method is a single-document
	// read or write; the store offers document-level atomicity only, no
	// transaction spans several calls.
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		QueryAllUsers(ctx context.Context) ([]User, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		// IncrementReferralCount bumps the user's referral counter by one in a
		// single update.
		IncrementReferralCount(ctx context.Context, id string) error

		// Family-group document operations.
		// GetGroupOwner returns the user whose document holds the
		// authoritative members/requests lists for groupID.
		GetGroupOwner(ctx context.Context, groupID string) (User, error)
		GroupCodeExists(ctx context.Context, groupID string) (bool, error)
		SetFamilyGroup(ctx context.Context, userID string, fg *FamilyGroup) error
		AppendGroupMember(ctx context.Context, ownerID string, m GroupMember) error
		AppendJoinRequest(ctx context.Context, ownerID string, r JoinRequest) error
		SetJoinRequests(ctx context.Context, ownerID string, reqs []JoinRequest) error
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
		logger  core.Logger
	}
)

func NewService(repo Repository, mailSvc core.EmailService, logger core.Logger) *Service {
	return &Service{repo: repo, mailSvc: mailSvc, logger: logger}
}

func (svc *Service) checkEmailUniqueness(email string, exclUsers ...User) error {
	if err := svc.repo.CheckEmailUniqueness(context.Background(), email, exclUsers...); err != nil {
		if err == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

// Create registers a new account and records its referral bookkeeping: a
// fresh referral code is generated, and when a known referral code was
// supplied the referrer's ID is recorded on the new account and the
// referrer's counter is incremented before Create returns. An unknown
// referral code is silently ignored. referredBy is immutable afterwards.
func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		Name:         nu.Name,
		FatherName:   nu.FatherName,
		PhoneNo:      nu.PhoneNo,
		Email:        nu.Email,
		Role:         RoleUser,
		ReferralCode: GenerateReferralCode(nu.Name),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, err
	}

	var referrer User
	if nu.ReferredBy != "" {
		ref, err := svc.repo.GetUser(ctx, GetFilter{ReferralCode: nu.ReferredBy})
		switch err {
		case nil:
			referrer = ref
			usr.ReferredBy = ref.ID
		case ErrNotFound: // unknown code: no referral recorded
		default:
			return User{}, err
		}
	}

	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, err
	}

	if usr.ReferredBy != "" {
		// the account exists either way; a failed increment is reported, not fatal
		if err := svc.repo.IncrementReferralCount(ctx, usr.ReferredBy); err != nil {
			svc.logger.Error(fmt.Sprintf("incrementing referral count for %s: %v", usr.ReferredBy, err), err)
		} else {
			svc.mailSvc.SendMessages(&core.EmailMessage{
				To:      []mail.Address{{Name: referrer.Name, Address: referrer.Email}},
				Subject: "Your referral code was used",
				BodyStr: fmt.Sprintf("%s just signed up with your referral code %s.", usr.Name, referrer.ReferralCode),
			})
		}
	}
	return usr, nil
}

// ValidateReferral checks a referral code on behalf of the authenticated
// user: the caller may not use their own code, and the code must belong to a
// registered user. It returns the referrer's ID.
func (svc *Service) ValidateReferral(ctx context.Context, code, currentUserEmail string) (string, error) {
	curr, err := svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(currentUserEmail, true /* lower */)})
	if err != nil && err != ErrNotFound {
		return "", err
	}
	if err == nil && curr.ReferralCode == code {
		return "", core.NewValidationError(ErrSelfReferral)
	}

	referrer, err := svc.repo.GetUser(ctx, GetFilter{ReferralCode: code})
	if err != nil {
		if err == ErrNotFound {
			return "", ErrInvalidCode
		}
		return "", err
	}
	return referrer.ID, nil
}

func (svc *Service) QueryAll(ctx context.Context) ([]User, error) {
	return svc.repo.QueryAllUsers(ctx)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

// SetRole changes a user's role; admin only (enforced by the calling layer).
func (svc *Service) SetRole(ctx context.Context, id, role string) (User, error) {
	if !IsValidRole(role) {
		return User{}, core.NewValidationError(nil, core.FieldError{Field: "role", Error: "invalid role"})
	}
	usr, err := svc.repo.GetUser(ctx, GetFilter{ID: id})
	if err != nil {
		return User{}, err
	}
	usr.Role = role
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}
