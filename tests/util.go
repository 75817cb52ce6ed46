package testutil

import (
	"context"
	"log"
	"testing"
	"time"

	"github.com/asmaktab/backend/core"
	"github.com/asmaktab/backend/core/purchase"
	"github.com/asmaktab/backend/core/user"
)

// testLogger logs to stdout and never reports anywhere.
type testLogger struct{}

var _ core.Logger = (*testLogger)(nil)

func NewLogger() core.Logger { return testLogger{} }

func (l testLogger) Enable(bool)                           {}
func (l testLogger) Debug(msg string, args ...interface{}) { log.Println(msg) }
func (l testLogger) Info(msg string, args ...interface{})  { log.Println(msg) }
func (l testLogger) Warn(msg string, args ...interface{})  { log.Println(msg) }
func (l testLogger) Error(msg string, args ...interface{}) { log.Println(msg) }
func (l testLogger) Fatal(msg string, args ...interface{}) { log.Fatalln(msg) }

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd, role string,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	if role == "" {
		role = user.RoleUser
	}
	usr := user.User{
		Name:         name,
		Email:        email,
		Role:         role,
		ReferralCode: user.GenerateReferralCode(name),
		CreatedAt:    tstamp,
		UpdatedAt:    tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser(): %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}
	return usr
}

func CreatePurchase(
	t *testing.T,
	repo purchase.Repository,
	courseID, courseName, studentEmail string,
) purchase.Purchase {
	now := time.Now().UTC()
	p := purchase.Purchase{
		CourseID:     courseID,
		CourseName:   courseName,
		StudentEmail: studentEmail,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	p, err := repo.CreatePurchase(context.Background(), p)
	if err != nil {
		t.Fatalf("CreatePurchase(): %v", err)
	}
	return p
}
