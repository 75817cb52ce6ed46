package echoapi

import (
	"github.com/asmaktab/backend/core"
	"github.com/asmaktab/backend/core/user"
)

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}

	RegisterResponse struct {
		User  user.User `json:"user"`
		Token string    `json:"token"`
	}

	ValidateReferralResponse struct {
		ReferrerID string `json:"referrerId"`
	}

	RoleRequest struct {
		Role string `json:"role" validate:"required"`
	}

	GroupCreatedResponse struct {
		GroupID string `json:"groupId"`
	}

	ApproveRequestBody struct {
		UserID string `json:"userId" validate:"required"`
	}

	ApproveGroupRequest struct {
		Discount float64 `json:"discount"`
	}

	ConfirmPurchaseRequest struct {
		TutorID string `json:"tutorId"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (lr *LoginRequest) Validate() error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return core.Validate.Struct(lr)
}

func (rr *RoleRequest) Validate() error {
	rr.Role = core.CleanString(rr.Role, true /* lower */)
	return core.Validate.Struct(rr)
}

func (ar *ApproveRequestBody) Validate() error {
	ar.UserID = core.CleanString(ar.UserID)
	return core.Validate.Struct(ar)
}
