package sqlxrepos

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/asmaktab/backend/core/purchase"
)

type purchaseRepository struct {
	db *sqlx.DB
}

var _ purchase.Repository = (*purchaseRepository)(nil) // interface compliance check

func NewPurchaseRepository(db *sqlx.DB) *purchaseRepository {
	return &purchaseRepository{db: db}
}

// reviewsCol maps a review list to a JSONB column.
type reviewsCol []purchase.Review

func (c reviewsCol) Value() (driver.Value, error) {
	if c == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]purchase.Review(c))
}

func (c *reviewsCol) Scan(src interface{}) error {
	if src == nil {
		*c = nil
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return errors.Errorf("scanning reviews: unexpected type %T", src)
	}
	return errors.Wrap(json.Unmarshal(b, (*[]purchase.Review)(c)), "scanning reviews")
}

func reviewColumn(kind purchase.ReviewKind) (string, error) {
	switch kind {
	case purchase.StudentReview:
		return "student_reviews", nil
	case purchase.TutorReview:
		return "tutor_reviews", nil
	}
	return "", errors.Errorf("unknown review kind %q", kind)
}

type purchaseRow struct {
	ID              string      `db:"id"`
	CourseID        string      `db:"course_id"`
	CourseName      string      `db:"course_name"`
	StudentEmail    string      `db:"student_email"`
	Confirmed       bool        `db:"confirmed"`
	Denied          bool        `db:"denied"`
	AssignedTutorID null.String `db:"assigned_tutor_id"`
	StudentReviews  reviewsCol  `db:"student_reviews"`
	TutorReviews    reviewsCol  `db:"tutor_reviews"`
	CreatedAt       time.Time   `db:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at"`
}

func (repo purchaseRepository) purchaseAsRow(p purchase.Purchase) purchaseRow {
	return purchaseRow{
		ID:              p.ID,
		CourseID:        p.CourseID,
		CourseName:      p.CourseName,
		StudentEmail:    p.StudentEmail,
		Confirmed:       p.Confirmed,
		Denied:          p.Denied,
		AssignedTutorID: null.NewString(p.AssignedTutorID, p.AssignedTutorID != ""),
		StudentReviews:  reviewsCol(p.StudentReviews),
		TutorReviews:    reviewsCol(p.TutorReviews),
		CreatedAt:       p.CreatedAt.UTC(),
		UpdatedAt:       p.UpdatedAt.UTC(),
	}
}

func (repo purchaseRepository) rowAsPurchase(row purchaseRow) purchase.Purchase {
	return purchase.Purchase{
		ID:              row.ID,
		CourseID:        row.CourseID,
		CourseName:      row.CourseName,
		StudentEmail:    row.StudentEmail,
		Confirmed:       row.Confirmed,
		Denied:          row.Denied,
		AssignedTutorID: row.AssignedTutorID.String,
		StudentReviews:  []purchase.Review(row.StudentReviews),
		TutorReviews:    []purchase.Review(row.TutorReviews),
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
}

type paymentRow struct {
	ID            string      `db:"id"`
	StudentEmail  string      `db:"student_email"`
	StudentName   string      `db:"student_name"`
	CourseID      string      `db:"course_id"`
	CourseName    string      `db:"course_name"`
	Month         string      `db:"month"`
	Year          int         `db:"year"`
	Amount        float64     `db:"amount"`
	Discount      float64     `db:"discount"`
	Status        string      `db:"status"`
	TransactionID null.String `db:"transaction_id"`
	PaymentMethod string      `db:"payment_method"`
	SenderInfo    null.String `db:"sender_info"`
	PaymentDate   null.Time   `db:"payment_date"`
	CreatedAt     time.Time   `db:"created_at"`
	UpdatedAt     time.Time   `db:"updated_at"`
}

func (repo purchaseRepository) paymentAsRow(pay purchase.Payment) paymentRow {
	var pd null.Time
	if pay.PaymentDate != nil {
		pd = null.TimeFrom(pay.PaymentDate.UTC())
	}
	return paymentRow{
		ID:            pay.ID,
		StudentEmail:  pay.StudentEmail,
		StudentName:   pay.StudentName,
		CourseID:      pay.CourseID,
		CourseName:    pay.CourseName,
		Month:         pay.Month,
		Year:          pay.Year,
		Amount:        pay.Amount,
		Discount:      pay.Discount,
		Status:        pay.Status,
		TransactionID: null.NewString(pay.TransactionID, pay.TransactionID != ""),
		PaymentMethod: pay.PaymentMethod,
		SenderInfo:    null.NewString(pay.SenderInfo, pay.SenderInfo != ""),
		PaymentDate:   pd,
		CreatedAt:     pay.CreatedAt.UTC(),
		UpdatedAt:     pay.UpdatedAt.UTC(),
	}
}

func (repo purchaseRepository) rowAsPayment(row paymentRow) purchase.Payment {
	return purchase.Payment{
		ID:            row.ID,
		StudentEmail:  row.StudentEmail,
		StudentName:   row.StudentName,
		CourseID:      row.CourseID,
		CourseName:    row.CourseName,
		Month:         row.Month,
		Year:          row.Year,
		Amount:        row.Amount,
		Discount:      row.Discount,
		Status:        row.Status,
		TransactionID: row.TransactionID.String,
		PaymentMethod: row.PaymentMethod,
		SenderInfo:    row.SenderInfo.String,
		PaymentDate:   row.PaymentDate.Ptr(),
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}

func (repo purchaseRepository) CreatePurchase(ctx context.Context, p purchase.Purchase) (purchase.Purchase, error) {
	p.ID = uuid.New().String()
	row := repo.purchaseAsRow(p)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO purchase (id, course_id, course_name, student_email, confirmed, denied,
		                      assigned_tutor_id, student_reviews, tutor_reviews, created_at, updated_at)
		VALUES (:id, :course_id, :course_name, :student_email, :confirmed, :denied,
		        :assigned_tutor_id, :student_reviews, :tutor_reviews, :created_at, :updated_at)`, row)
	if err != nil {
		return purchase.Purchase{}, errors.Wrap(err, "inserting purchase")
	}
	return p, nil
}

func (repo purchaseRepository) GetPurchase(ctx context.Context, id string) (purchase.Purchase, error) {
	if _, err := uuid.Parse(id); err != nil {
		return purchase.Purchase{}, purchase.ErrNotFound
	}
	var row purchaseRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM purchase WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return purchase.Purchase{}, purchase.ErrNotFound
		}
		return purchase.Purchase{}, errors.Wrap(err, "finding purchase")
	}
	return repo.rowAsPurchase(row), nil
}

func (repo purchaseRepository) QueryAllPurchases(ctx context.Context) ([]purchase.Purchase, error) {
	var rows []purchaseRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM purchase ORDER BY created_at`); err != nil {
		return nil, errors.Wrap(err, "querying purchases")
	}
	res := make([]purchase.Purchase, 0, len(rows))
	for _, row := range rows {
		res = append(res, repo.rowAsPurchase(row))
	}
	return res, nil
}

func (repo purchaseRepository) QueryPurchasesByStudent(ctx context.Context, email string) ([]purchase.Purchase, error) {
	var rows []purchaseRow
	err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM purchase WHERE student_email = $1 ORDER BY created_at`, email)
	if err != nil {
		return nil, errors.Wrap(err, "querying purchases")
	}
	res := make([]purchase.Purchase, 0, len(rows))
	for _, row := range rows {
		res = append(res, repo.rowAsPurchase(row))
	}
	return res, nil
}

func (repo purchaseRepository) UpdatePurchase(ctx context.Context, p purchase.Purchase) (purchase.Purchase, error) {
	row := repo.purchaseAsRow(p)
	_, err := repo.db.NamedExecContext(ctx, `
		UPDATE purchase
		SET confirmed = :confirmed, denied = :denied, assigned_tutor_id = :assigned_tutor_id,
		    updated_at = :updated_at
		WHERE id = :id`, row)
	if err != nil {
		return purchase.Purchase{}, errors.Wrap(err, "updating purchase")
	}
	return p, nil
}

func (repo purchaseRepository) HasReviewWithin(ctx context.Context, id string, kind purchase.ReviewKind, from, to time.Time) (bool, error) {
	col, err := reviewColumn(kind)
	if err != nil {
		return false, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}
	var exists bool
	query := fmt.Sprintf(`
		SELECT EXISTS (SELECT 1
		               FROM purchase p, jsonb_array_elements(p.%s) rev
		               WHERE p.id = $1 AND (rev ->> 'createdAt')::timestamptz BETWEEN $2 AND $3)`, col)
	if err := repo.db.GetContext(ctx, &exists, query, id, from, to); err != nil {
		return false, errors.Wrap(err, "checking existing reviews")
	}
	return exists, nil
}

func (repo purchaseRepository) AppendReview(ctx context.Context, id string, kind purchase.ReviewKind, rev purchase.Review) error {
	col, err := reviewColumn(kind)
	if err != nil {
		return err
	}
	if _, err := uuid.Parse(id); err != nil {
		return purchase.ErrNotFound
	}
	data, err := json.Marshal(rev)
	if err != nil {
		return errors.Wrap(err, "marshalling review")
	}
	query := fmt.Sprintf(`UPDATE purchase SET %[1]s = %[1]s || $2::jsonb, updated_at = NOW() WHERE id = $1`, col)
	res, err := repo.db.ExecContext(ctx, query, id, data)
	if err != nil {
		return errors.Wrap(err, "appending review")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return purchase.ErrNotFound
	}
	return nil
}

func (repo purchaseRepository) CreatePayment(ctx context.Context, pay purchase.Payment) (purchase.Payment, error) {
	pay.ID = uuid.New().String()
	row := repo.paymentAsRow(pay)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO payment (id, student_email, student_name, course_id, course_name, month, year,
		                     amount, discount, status, transaction_id, payment_method, sender_info,
		                     payment_date, created_at, updated_at)
		VALUES (:id, :student_email, :student_name, :course_id, :course_name, :month, :year,
		        :amount, :discount, :status, :transaction_id, :payment_method, :sender_info,
		        :payment_date, :created_at, :updated_at)`, row)
	if err != nil {
		return purchase.Payment{}, errors.Wrap(err, "inserting payment")
	}
	return pay, nil
}

func (repo purchaseRepository) GetPayment(ctx context.Context, id string) (purchase.Payment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return purchase.Payment{}, purchase.ErrPaymentNotFound
	}
	var row paymentRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM payment WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return purchase.Payment{}, purchase.ErrPaymentNotFound
		}
		return purchase.Payment{}, errors.Wrap(err, "finding payment")
	}
	return repo.rowAsPayment(row), nil
}

func (repo purchaseRepository) QueryAllPayments(ctx context.Context) ([]purchase.Payment, error) {
	var rows []paymentRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM payment ORDER BY created_at`); err != nil {
		return nil, errors.Wrap(err, "querying payments")
	}
	res := make([]purchase.Payment, 0, len(rows))
	for _, row := range rows {
		res = append(res, repo.rowAsPayment(row))
	}
	return res, nil
}

func (repo purchaseRepository) QueryPaymentsByStudent(ctx context.Context, email string) ([]purchase.Payment, error) {
	var rows []paymentRow
	err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM payment WHERE student_email = $1 ORDER BY created_at`, email)
	if err != nil {
		return nil, errors.Wrap(err, "querying payments")
	}
	res := make([]purchase.Payment, 0, len(rows))
	for _, row := range rows {
		res = append(res, repo.rowAsPayment(row))
	}
	return res, nil
}

func (repo purchaseRepository) UpdatePayment(ctx context.Context, pay purchase.Payment) (purchase.Payment, error) {
	row := repo.paymentAsRow(pay)
	_, err := repo.db.NamedExecContext(ctx, `
		UPDATE payment
		SET status = :status, payment_date = :payment_date, updated_at = :updated_at
		WHERE id = :id`, row)
	if err != nil {
		return purchase.Payment{}, errors.Wrap(err, "updating payment")
	}
	return pay, nil
}
