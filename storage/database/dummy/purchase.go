package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/asmaktab/backend/core/purchase"
)

type purchaseRepository struct {
	purchases *purchaseTable
	payments  *paymentTable
}

var _ purchase.Repository = (*purchaseRepository)(nil) // interface compliance check

func NewPurchaseRepository(db *DB) *purchaseRepository {
	return &purchaseRepository{purchases: db.purchase, payments: db.payment}
}

func clonePurchase(p purchase.Purchase) purchase.Purchase {
	cp := p
	cp.StudentReviews = append([]purchase.Review(nil), p.StudentReviews...)
	cp.TutorReviews = append([]purchase.Review(nil), p.TutorReviews...)
	return cp
}

func (repo *purchaseRepository) CreatePurchase(ctx context.Context, p purchase.Purchase) (purchase.Purchase, error) {
	repo.purchases.Lock()
	defer repo.purchases.Unlock()

	p.ID = uuid.New().String()
	stored := clonePurchase(p)
	repo.purchases.table[p.ID] = &stored
	return p, nil
}

func (repo *purchaseRepository) GetPurchase(ctx context.Context, id string) (purchase.Purchase, error) {
	repo.purchases.RLock()
	defer repo.purchases.RUnlock()

	if p, ok := repo.purchases.table[id]; ok {
		return clonePurchase(*p), nil
	}
	return purchase.Purchase{}, purchase.ErrNotFound
}

func (repo *purchaseRepository) QueryAllPurchases(ctx context.Context) ([]purchase.Purchase, error) {
	repo.purchases.RLock()
	defer repo.purchases.RUnlock()

	res := make([]purchase.Purchase, 0, len(repo.purchases.table))
	for _, p := range repo.purchases.table {
		res = append(res, clonePurchase(*p))
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	return res, nil
}

func (repo *purchaseRepository) QueryPurchasesByStudent(ctx context.Context, email string) ([]purchase.Purchase, error) {
	repo.purchases.RLock()
	defer repo.purchases.RUnlock()

	var res []purchase.Purchase
	for _, p := range repo.purchases.table {
		if p.StudentEmail == email {
			res = append(res, clonePurchase(*p))
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	return res, nil
}

func (repo *purchaseRepository) UpdatePurchase(ctx context.Context, p purchase.Purchase) (purchase.Purchase, error) {
	repo.purchases.Lock()
	defer repo.purchases.Unlock()

	orig, ok := repo.purchases.table[p.ID]
	if !ok {
		return purchase.Purchase{}, purchase.ErrNotFound
	}
	orig.Confirmed = p.Confirmed
	orig.Denied = p.Denied
	orig.AssignedTutorID = p.AssignedTutorID
	orig.UpdatedAt = p.UpdatedAt
	return clonePurchase(*orig), nil
}

func (repo *purchaseRepository) reviews(p *purchase.Purchase, kind purchase.ReviewKind) []purchase.Review {
	if kind == purchase.TutorReview {
		return p.TutorReviews
	}
	return p.StudentReviews
}

func (repo *purchaseRepository) HasReviewWithin(ctx context.Context, id string, kind purchase.ReviewKind, from, to time.Time) (bool, error) {
	repo.purchases.RLock()
	defer repo.purchases.RUnlock()

	p, ok := repo.purchases.table[id]
	if !ok {
		return false, nil
	}
	for _, rev := range repo.reviews(p, kind) {
		if !rev.CreatedAt.Before(from) && !rev.CreatedAt.After(to) {
			return true, nil
		}
	}
	return false, nil
}

func (repo *purchaseRepository) AppendReview(ctx context.Context, id string, kind purchase.ReviewKind, rev purchase.Review) error {
	repo.purchases.Lock()
	defer repo.purchases.Unlock()

	p, ok := repo.purchases.table[id]
	if !ok {
		return purchase.ErrNotFound
	}
	if kind == purchase.TutorReview {
		p.TutorReviews = append(p.TutorReviews, rev)
	} else {
		p.StudentReviews = append(p.StudentReviews, rev)
	}
	return nil
}

func (repo *purchaseRepository) CreatePayment(ctx context.Context, pay purchase.Payment) (purchase.Payment, error) {
	repo.payments.Lock()
	defer repo.payments.Unlock()

	pay.ID = uuid.New().String()
	stored := pay
	repo.payments.table[pay.ID] = &stored
	return pay, nil
}

func (repo *purchaseRepository) GetPayment(ctx context.Context, id string) (purchase.Payment, error) {
	repo.payments.RLock()
	defer repo.payments.RUnlock()

	if pay, ok := repo.payments.table[id]; ok {
		return *pay, nil
	}
	return purchase.Payment{}, purchase.ErrPaymentNotFound
}

func (repo *purchaseRepository) QueryAllPayments(ctx context.Context) ([]purchase.Payment, error) {
	repo.payments.RLock()
	defer repo.payments.RUnlock()

	res := make([]purchase.Payment, 0, len(repo.payments.table))
	for _, pay := range repo.payments.table {
		res = append(res, *pay)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	return res, nil
}

func (repo *purchaseRepository) QueryPaymentsByStudent(ctx context.Context, email string) ([]purchase.Payment, error) {
	repo.payments.RLock()
	defer repo.payments.RUnlock()

	var res []purchase.Payment
	for _, pay := range repo.payments.table {
		if pay.StudentEmail == email {
			res = append(res, *pay)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	return res, nil
}

func (repo *purchaseRepository) UpdatePayment(ctx context.Context, pay purchase.Payment) (purchase.Payment, error) {
	repo.payments.Lock()
	defer repo.payments.Unlock()

	orig, ok := repo.payments.table[pay.ID]
	if !ok {
		return purchase.Payment{}, purchase.ErrPaymentNotFound
	}
	orig.Status = pay.Status
	orig.PaymentDate = pay.PaymentDate
	orig.UpdatedAt = pay.UpdatedAt
	return *orig, nil
}
