package dummydb

import (
	"sync"

	"github.com/asmaktab/backend/core/purchase"
	"github.com/asmaktab/backend/core/user"
)

type (
	DB struct {
		user     *userTable
		purchase *purchaseTable
		payment  *paymentTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	purchaseTable struct {
		sync.RWMutex
		table map[string]*purchase.Purchase
	}

	paymentTable struct {
		sync.RWMutex
		table map[string]*purchase.Payment
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:     &userTable{table: make(map[string]*user.User)},
		purchase: &purchaseTable{table: make(map[string]*purchase.Purchase)},
		payment:  &paymentTable{table: make(map[string]*purchase.Payment)},
	}
	return db, nil
}
