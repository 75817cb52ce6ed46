package user

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/asmaktab/backend/core"
)

// Roles
const (
	RoleUser  = "user"
	RoleTutor = "tutor"
	RoleAdmin = "admin"
)

var AllRoles = []string{RoleUser, RoleTutor, RoleAdmin}

func IsValidRole(role string) bool {
	for _, r := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Family group statuses
const (
	GroupStatusPending  = "pending"
	GroupStatusApproved = "approved"

	RequestStatusPending = "pending"
)

type (
	// GroupMember is a denormalized copy of a user's identity fields captured
	// at approval time. It is a snapshot, not a live reference.
	GroupMember struct {
		UserID     string    `json:"userId"`
		Name       string    `json:"name"`
		Email      string    `json:"email"`
		FatherName string    `json:"fatherName,omitempty"`
		JoinedAt   time.Time `json:"joinedAt"`
	}

	JoinRequest struct {
		UserID      string    `json:"userId"`
		RequestedAt time.Time `json:"requestedAt"`
		Status      string    `json:"status"`
	}

	// FamilyGroup is embedded in each participating User document, not a
	// standalone entity. The group owner's copy holds the authoritative
	// members/requests lists; each member's own copy holds only a
	// single-member self snapshot, so owner and member copies diverge.
	FamilyGroup struct {
		GroupID   string        `json:"groupId"`
		Status    string        `json:"status"`
		CreatedBy string        `json:"createdBy"`
		Members   []GroupMember `json:"members"`
		Requests  []JoinRequest `json:"requests,omitempty"`
		Discount  float64       `json:"discount,omitempty"` // percentage; set once approved
		CreatedAt time.Time     `json:"createdAt"`
	}
)

func (fg *FamilyGroup) IsApproved() bool {
	return fg != nil && fg.Status == GroupStatusApproved
}

// HasPendingRequest reports whether userID already has a request queued on this group.
func (fg *FamilyGroup) HasPendingRequest(userID string) bool {
	if fg == nil {
		return false
	}
	for _, req := range fg.Requests {
		if req.UserID == userID {
			return true
		}
	}
	return false
}

type User struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	FatherName   string `json:"father_name,omitempty"`
	PhoneNo      string `json:"phone_no,omitempty"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	PasswordHash []byte `json:"-"`

	ReferralCode  string `json:"referral_code"`
	ReferredBy    string `json:"referred_by,omitempty"` // referrer's user ID; immutable once set
	ReferralCount int    `json:"referral_count"`

	FamilyGroup *FamilyGroup `json:"family_group,omitempty"`

	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }
func (u *User) IsTutor() bool { return u.Role == RoleTutor }

// Snapshot captures the user's identity fields for a group members list.
func (u *User) Snapshot(joinedAt time.Time) GroupMember {
	return GroupMember{
		UserID:     u.ID,
		Name:       u.Name,
		Email:      u.Email,
		FatherName: u.FatherName,
		JoinedAt:   joinedAt,
	}
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name       string `json:"name" validate:"required"`
	FatherName string `json:"father_name"`
	PhoneNo    string `json:"phone_no"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	ReferredBy string `json:"referred_by"` // referral code, optional
}

func (nu *NewUser) Validate(svc *Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.FatherName = core.CleanString(nu.FatherName)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.ReferredBy = core.CleanString(nu.ReferredBy)

	if err := core.Validate.Struct(nu); err != nil {
		return err
	}
	return svc.checkEmailUniqueness(nu.Email)
}
