package purchase

import (
	"time"

	"github.com/asmaktab/backend/core"
)

// Payment statuses
const (
	StatusSubmitted = "submitted"
	StatusPaid      = "paid"
	StatusDenied    = "denied"
)

// ReviewKind selects which of a purchase's review lists an operation targets.
// Student and tutor lists are throttled independently.
type ReviewKind string

const (
	StudentReview ReviewKind = "student"
	TutorReview   ReviewKind = "tutor"
)

type (
	Review struct {
		Answers   map[string]string `json:"answers"`
		Comments  string            `json:"comments"`
		CreatedAt time.Time         `json:"createdAt"`
	}

	Purchase struct {
		ID              string    `json:"id"`
		CourseID        string    `json:"course_id"`
		CourseName      string    `json:"course_name"`
		StudentEmail    string    `json:"student_email"`
		Confirmed       bool      `json:"confirmed"`
		Denied          bool      `json:"denied"`
		AssignedTutorID string    `json:"assigned_tutor_id,omitempty"`
		StudentReviews  []Review  `json:"student_reviews,omitempty"`
		TutorReviews    []Review  `json:"tutor_reviews,omitempty"`
		CreatedAt       time.Time `json:"created_at"` // UTC
		UpdatedAt       time.Time `json:"updated_at"` // UTC
	}

	Payment struct {
		ID            string     `json:"id"`
		StudentEmail  string     `json:"student_email"`
		StudentName   string     `json:"student_name"`
		CourseID      string     `json:"course_id"`
		CourseName    string     `json:"course_name"`
		Month         string     `json:"month"`
		Year          int        `json:"year"`
		Amount        float64    `json:"amount"`
		Discount      float64    `json:"discount"` // percentage snapshot taken at submission
		Status        string     `json:"status"`
		TransactionID string     `json:"transaction_id,omitempty"`
		PaymentMethod string     `json:"payment_method"`
		SenderInfo    string     `json:"sender_info,omitempty"`
		PaymentDate   *time.Time `json:"payment_date,omitempty"`
		CreatedAt     time.Time  `json:"created_at"` // UTC
		UpdatedAt     time.Time  `json:"updated_at"` // UTC
	}
)

// NewPurchase contains information needed to create a new Purchase.
type NewPurchase struct {
	CourseID   string `json:"course_id" validate:"required"`
	CourseName string `json:"course_name" validate:"required"`
}

func (np *NewPurchase) Validate() error {
	np.CourseID = core.CleanString(np.CourseID)
	np.CourseName = core.CleanString(np.CourseName)
	return core.Validate.Struct(np)
}

// NewPayment contains information needed to submit a payment.
type NewPayment struct {
	CourseID      string  `json:"course_id" validate:"required"`
	CourseName    string  `json:"course_name" validate:"required"`
	Month         string  `json:"month" validate:"required"`
	Year          int     `json:"year" validate:"required"`
	Amount        float64 `json:"amount" validate:"required,gt=0"`
	TransactionID string  `json:"transaction_id"`
	PaymentMethod string  `json:"payment_method" validate:"required"`
	SenderInfo    string  `json:"sender_info"`
}

func (np *NewPayment) Validate() error {
	np.CourseID = core.CleanString(np.CourseID)
	np.CourseName = core.CleanString(np.CourseName)
	np.Month = core.CleanString(np.Month)
	np.PaymentMethod = core.CleanString(np.PaymentMethod)
	return core.Validate.Struct(np)
}

// NewReview contains a review submission for a purchase.
type NewReview struct {
	Answers  map[string]string `json:"answers" validate:"required"`
	Comments string            `json:"comments"`
}

func (nr *NewReview) Validate() error {
	nr.Comments = core.CleanString(nr.Comments)
	return core.Validate.Struct(nr)
}
