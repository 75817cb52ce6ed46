package user_test

import (
	"context"
	"testing"

	"github.com/asmaktab/backend/core"
	"github.com/asmaktab/backend/core/user"
	emailsvc "github.com/asmaktab/backend/services/email"
	dummydb "github.com/asmaktab/backend/storage/database/dummy"
	testutil "github.com/asmaktab/backend/tests"
)

func setup(t *testing.T) (*user.Service, user.Repository) {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open(): %v", err)
	}
	repo := dummydb.NewUserRepository(db)
	svc := user.NewService(repo, emailsvc.NewConsoleServiceMock(), testutil.NewLogger())
	return svc, repo
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	svc, repo := setup(t)

	referrer := testutil.CreateUser(t, repo, "Hassan Ka", "hassan@test.tn", "pwd", "")

	t.Run("fresh account", func(t *testing.T) {
		usr, err := svc.Create(ctx, user.NewUser{
			Name:     "Khadija Omar",
			Email:    "khadija@test.tn",
			Password: "s3cret",
		})
		if err != nil {
			t.Fatalf("Create(): %v", err)
		}
		if usr.Role != user.RoleUser {
			t.Errorf("Role = %q; want %q", usr.Role, user.RoleUser)
		}
		if usr.ReferralCode == "" {
			t.Error("ReferralCode not set")
		}
		if usr.ReferredBy != "" {
			t.Errorf("ReferredBy = %q; want empty", usr.ReferredBy)
		}
		if err := usr.CheckPassword("s3cret"); err != nil {
			t.Errorf("CheckPassword(): %v", err)
		}
	})

	t.Run("known referral code", func(t *testing.T) {
		usr, err := svc.Create(ctx, user.NewUser{
			Name:       "Amine Ben",
			Email:      "amine@test.tn",
			Password:   "s3cret",
			ReferredBy: referrer.ReferralCode,
		})
		if err != nil {
			t.Fatalf("Create(): %v", err)
		}
		if usr.ReferredBy != referrer.ID {
			t.Errorf("ReferredBy = %q; want %q", usr.ReferredBy, referrer.ID)
		}

		// the counter is already bumped when Create returns
		ref, err := repo.GetUser(ctx, user.GetFilter{ID: referrer.ID})
		if err != nil {
			t.Fatalf("GetUser(): %v", err)
		}
		if ref.ReferralCount != 1 {
			t.Errorf("ReferralCount = %d; want 1", ref.ReferralCount)
		}
	})

	t.Run("unknown referral code ignored", func(t *testing.T) {
		usr, err := svc.Create(ctx, user.NewUser{
			Name:       "Sara Noor",
			Email:      "sara@test.tn",
			Password:   "s3cret",
			ReferredBy: "NOONE0000",
		})
		if err != nil {
			t.Fatalf("Create(): %v", err)
		}
		if usr.ReferredBy != "" {
			t.Errorf("ReferredBy = %q; want empty", usr.ReferredBy)
		}
	})
}

func TestService_ValidateReferral(t *testing.T) {
	ctx := context.Background()
	svc, repo := setup(t)

	referrer := testutil.CreateUser(t, repo, "Hassan Ka", "hassan@test.tn", "pwd", "")
	current := testutil.CreateUser(t, repo, "Khadija Omar", "khadija@test.tn", "pwd", "")

	t.Run("valid code", func(t *testing.T) {
		id, err := svc.ValidateReferral(ctx, referrer.ReferralCode, current.Email)
		if err != nil {
			t.Fatalf("ValidateReferral(): %v", err)
		}
		if id != referrer.ID {
			t.Errorf("referrer ID = %q; want %q", id, referrer.ID)
		}
	})

	t.Run("own code rejected", func(t *testing.T) {
		_, err := svc.ValidateReferral(ctx, current.ReferralCode, current.Email)
		if _, ok := err.(*core.ValidationError); !ok {
			t.Errorf("error = %v; want *core.ValidationError", err)
		}
	})

	t.Run("unknown code", func(t *testing.T) {
		_, err := svc.ValidateReferral(ctx, "NOONE0000", current.Email)
		if err != user.ErrInvalidCode {
			t.Errorf("error = %v; want %v", err, user.ErrInvalidCode)
		}
	})
}

func TestService_SetRole(t *testing.T) {
	ctx := context.Background()
	svc, repo := setup(t)

	usr := testutil.CreateUser(t, repo, "Hassan Ka", "hassan@test.tn", "pwd", "")

	t.Run("invalid role", func(t *testing.T) {
		_, err := svc.SetRole(ctx, usr.ID, "superhero")
		if _, ok := err.(*core.ValidationError); !ok {
			t.Errorf("error = %v; want *core.ValidationError", err)
		}
	})

	t.Run("valid role", func(t *testing.T) {
		updated, err := svc.SetRole(ctx, usr.ID, user.RoleTutor)
		if err != nil {
			t.Fatalf("SetRole(): %v", err)
		}
		if updated.Role != user.RoleTutor {
			t.Errorf("Role = %q; want %q", updated.Role, user.RoleTutor)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.SetRole(ctx, "c1a6e2ff-0000-0000-0000-000000000000", user.RoleAdmin)
		if err != user.ErrNotFound {
			t.Errorf("error = %v; want %v", err, user.ErrNotFound)
		}
	})
}
