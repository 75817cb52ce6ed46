package purchase

import (
	"context"
	"errors"
	"time"

	"github.com/asmaktab/backend/core/user"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound        = errors.New("purchase not found")
	ErrPaymentNotFound = errors.New("payment not found")
	ErrAlreadyReviewed = errors.New("you have already submitted a review today; only one review per day is allowed")
)

type (
	// Repository is the purchase/payment record store, single-document
	// atomicity only.
	Repository interface {
		CreatePurchase(ctx context.Context, p Purchase) (Purchase, error)
		GetPurchase(ctx context.Context, id string) (Purchase, error)
		QueryAllPurchases(ctx context.Context) ([]Purchase, error)
		QueryPurchasesByStudent(ctx context.Context, email string) ([]Purchase, error)
		UpdatePurchase(ctx context.Context, p Purchase) (Purchase, error)
		// HasReviewWithin reports whether any review of the given kind on the
		// purchase has a timestamp inside [from, to].
		HasReviewWithin(ctx context.Context, id string, kind ReviewKind, from, to time.Time) (bool, error)
		AppendReview(ctx context.Context, id string, kind ReviewKind, rev Review) error

		CreatePayment(ctx context.Context, pay Payment) (Payment, error)
		GetPayment(ctx context.Context, id string) (Payment, error)
		QueryAllPayments(ctx context.Context) ([]Payment, error)
		QueryPaymentsByStudent(ctx context.Context, email string) ([]Payment, error)
		UpdatePayment(ctx context.Context, pay Payment) (Payment, error)
	}

	// DiscountResolver derives the family discount percentage for a
	// purchasing user.
	DiscountResolver interface {
		ResolveDiscount(ctx context.Context, userID string) (float64, error)
	}

	Service struct {
		repo     Repository
		users    user.Repository
		discount DiscountResolver
	}
)

func NewService(repo Repository, users user.Repository, discount DiscountResolver) *Service {
	return &Service{repo: repo, users: users, discount: discount}
}

func (svc *Service) Create(ctx context.Context, studentEmail string, np NewPurchase) (Purchase, error) {
	now := time.Now().UTC()
	p := Purchase{
		CourseID:     np.CourseID,
		CourseName:   np.CourseName,
		StudentEmail: studentEmail,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return svc.repo.CreatePurchase(ctx, p)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Purchase, error) {
	return svc.repo.GetPurchase(ctx, id)
}

func (svc *Service) QueryAll(ctx context.Context) ([]Purchase, error) {
	return svc.repo.QueryAllPurchases(ctx)
}

func (svc *Service) QueryByStudent(ctx context.Context, email string) ([]Purchase, error) {
	return svc.repo.QueryPurchasesByStudent(ctx, email)
}

func (svc *Service) Confirm(ctx context.Context, id, tutorID string) (Purchase, error) {
	p, err := svc.repo.GetPurchase(ctx, id)
	if err != nil {
		return Purchase{}, err
	}
	p.Confirmed = true
	p.Denied = false
	p.AssignedTutorID = tutorID
	p.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdatePurchase(ctx, p)
}

func (svc *Service) Deny(ctx context.Context, id string) (Purchase, error) {
	p, err := svc.repo.GetPurchase(ctx, id)
	if err != nil {
		return Purchase{}, err
	}
	p.Denied = true
	p.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdatePurchase(ctx, p)
}

// dayWindow is the calendar-day boundary [00:00:00.000, 23:59:59.999] around
// t, in t's location.
func dayWindow(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	end := time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
	return start, end
}

// AddReview appends a review entry to the purchase's list of the given kind,
// enforcing one submission per calendar day per list. The existence check and
// the append are two separate store operations; concurrent submissions within
// the same window can both pass the check (known limitation).
func (svc *Service) AddReview(ctx context.Context, purchaseID string, kind ReviewKind, nr NewReview) (Review, error) {
	from, to := dayWindow(NowFunc())
	exists, err := svc.repo.HasReviewWithin(ctx, purchaseID, kind, from, to)
	if err != nil {
		return Review{}, err
	}
	if exists {
		return Review{}, ErrAlreadyReviewed
	}

	rev := Review{
		Answers:   nr.Answers,
		Comments:  nr.Comments,
		CreatedAt: NowFunc(),
	}
	if err := svc.repo.AppendReview(ctx, purchaseID, kind, rev); err != nil {
		return Review{}, err
	}
	return rev, nil
}

// SubmitPayment persists a payment carrying the family discount snapshot
// resolved for the student at submission time; the snapshot is never
// recomputed if the group discount changes later.
func (svc *Service) SubmitPayment(ctx context.Context, studentEmail string, np NewPayment) (Payment, error) {
	student, err := svc.users.GetUser(ctx, user.GetFilter{Email: studentEmail})
	if err != nil {
		return Payment{}, err
	}

	discount, err := svc.discount.ResolveDiscount(ctx, student.ID)
	if err != nil {
		return Payment{}, err
	}

	now := time.Now().UTC()
	pay := Payment{
		StudentEmail:  student.Email,
		StudentName:   student.Name,
		CourseID:      np.CourseID,
		CourseName:    np.CourseName,
		Month:         np.Month,
		Year:          np.Year,
		Amount:        np.Amount,
		Discount:      discount,
		Status:        StatusSubmitted,
		TransactionID: np.TransactionID,
		PaymentMethod: np.PaymentMethod,
		SenderInfo:    np.SenderInfo,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	return svc.repo.CreatePayment(ctx, pay)
}

func (svc *Service) ConfirmPayment(ctx context.Context, id string) (Payment, error) {
	pay, err := svc.repo.GetPayment(ctx, id)
	if err != nil {
		return Payment{}, err
	}
	now := time.Now().UTC()
	pay.Status = StatusPaid
	pay.PaymentDate = &now
	pay.UpdatedAt = now
	return svc.repo.UpdatePayment(ctx, pay)
}

func (svc *Service) DenyPayment(ctx context.Context, id string) (Payment, error) {
	pay, err := svc.repo.GetPayment(ctx, id)
	if err != nil {
		return Payment{}, err
	}
	pay.Status = StatusDenied
	pay.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdatePayment(ctx, pay)
}

func (svc *Service) QueryAllPayments(ctx context.Context) ([]Payment, error) {
	return svc.repo.QueryAllPayments(ctx)
}

func (svc *Service) QueryPaymentsByStudent(ctx context.Context, email string) ([]Payment, error) {
	return svc.repo.QueryPaymentsByStudent(ctx, email)
}
