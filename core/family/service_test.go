package family_test

import (
	"context"
	"regexp"
	"testing"

	"github.com/asmaktab/backend/core"
	"github.com/asmaktab/backend/core/family"
	"github.com/asmaktab/backend/core/user"
	emailsvc "github.com/asmaktab/backend/services/email"
	dummydb "github.com/asmaktab/backend/storage/database/dummy"
	testutil "github.com/asmaktab/backend/tests"
)

var groupCodeRegex = regexp.MustCompile(`^FAM-[0-9A-Z]{6}$`)

func setup(t *testing.T) (*family.Service, user.Repository) {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open(): %v", err)
	}
	repo := dummydb.NewUserRepository(db)
	svc := family.NewService(repo, emailsvc.NewConsoleServiceMock(), testutil.NewLogger())
	return svc, repo
}

func approveGroup(t *testing.T, svc *family.Service, groupID string, discount float64) {
	if err := svc.ApproveGroup(context.Background(), groupID, discount); err != nil {
		t.Fatalf("ApproveGroup(): %v", err)
	}
}

func TestService_CreateGroup(t *testing.T) {
	ctx := context.Background()
	svc, repo := setup(t)

	owner := testutil.CreateUser(t, repo, "Hassan Ka", "hassan@test.tn", "pwd", "")

	groupID, err := svc.CreateGroup(ctx, owner.ID)
	if err != nil {
		t.Fatalf("CreateGroup(): %v", err)
	}
	if !groupCodeRegex.MatchString(groupID) {
		t.Errorf("groupID = %q; does not match %v", groupID, groupCodeRegex)
	}

	stored, err := repo.GetUser(ctx, user.GetFilter{ID: owner.ID})
	if err != nil {
		t.Fatalf("GetUser(): %v", err)
	}
	fg := stored.FamilyGroup
	if fg == nil {
		t.Fatal("FamilyGroup not written")
	}
	if fg.Status != user.GroupStatusPending {
		t.Errorf("Status = %q; want %q", fg.Status, user.GroupStatusPending)
	}
	if fg.CreatedBy != owner.ID {
		t.Errorf("CreatedBy = %q; want %q", fg.CreatedBy, owner.ID)
	}
	if len(fg.Members) != 1 || fg.Members[0].UserID != owner.ID {
		t.Errorf("Members = %+v; want single self snapshot", fg.Members)
	}

	// a second group for the same user is refused
	if _, err := svc.CreateGroup(ctx, owner.ID); err == nil {
		t.Error("CreateGroup() accepted a second group")
	} else if _, ok := err.(*core.ValidationError); !ok {
		t.Errorf("error = %v; want *core.ValidationError", err)
	}
}

func TestService_JoinGroup(t *testing.T) {
	ctx := context.Background()
	svc, repo := setup(t)

	owner := testutil.CreateUser(t, repo, "Hassan Ka", "hassan@test.tn", "pwd", "")
	joiner := testutil.CreateUser(t, repo, "Khadija Omar", "khadija@test.tn", "pwd", "")

	groupID, err := svc.CreateGroup(ctx, owner.ID)
	if err != nil {
		t.Fatalf("CreateGroup(): %v", err)
	}

	t.Run("pending group refuses joiners", func(t *testing.T) {
		err := svc.JoinGroup(ctx, groupID, joiner.ID)
		if vErr, ok := err.(*core.ValidationError); !ok || vErr.Err != family.ErrGroupNotApproved {
			t.Errorf("error = %v; want %v", err, family.ErrGroupNotApproved)
		}
	})

	approveGroup(t, svc, groupID, 10)

	t.Run("approved group queues the request", func(t *testing.T) {
		if err := svc.JoinGroup(ctx, groupID, joiner.ID); err != nil {
			t.Fatalf("JoinGroup(): %v", err)
		}
		stored, err := repo.GetGroupOwner(ctx, groupID)
		if err != nil {
			t.Fatalf("GetGroupOwner(): %v", err)
		}
		reqs := stored.FamilyGroup.Requests
		if len(reqs) != 1 || reqs[0].UserID != joiner.ID || reqs[0].Status != user.RequestStatusPending {
			t.Errorf("Requests = %+v; want single pending request for %q", reqs, joiner.ID)
		}
	})

	t.Run("duplicate request refused", func(t *testing.T) {
		err := svc.JoinGroup(ctx, groupID, joiner.ID)
		if vErr, ok := err.(*core.ValidationError); !ok || vErr.Err != family.ErrDuplicateRequest {
			t.Errorf("error = %v; want %v", err, family.ErrDuplicateRequest)
		}
	})

	t.Run("unknown group", func(t *testing.T) {
		other := testutil.CreateUser(t, repo, "Sara Noor", "sara@test.tn", "pwd", "")
		if err := svc.JoinGroup(ctx, "FAM-ZZZZZZ", other.ID); err != family.ErrGroupNotFound {
			t.Errorf("error = %v; want %v", err, family.ErrGroupNotFound)
		}
	})

	t.Run("existing member cannot join again", func(t *testing.T) {
		err := svc.JoinGroup(ctx, groupID, owner.ID)
		if vErr, ok := err.(*core.ValidationError); !ok || vErr.Err != family.ErrAlreadyInGroup {
			t.Errorf("error = %v; want %v", err, family.ErrAlreadyInGroup)
		}
	})
}

func TestService_ApproveRequest(t *testing.T) {
	ctx := context.Background()
	svc, repo := setup(t)

	owner := testutil.CreateUser(t, repo, "Hassan Ka", "hassan@test.tn", "pwd", "")
	joiner := testutil.CreateUser(t, repo, "Khadija Omar", "khadija@test.tn", "pwd", "")

	groupID, err := svc.CreateGroup(ctx, owner.ID)
	if err != nil {
		t.Fatalf("CreateGroup(): %v", err)
	}
	approveGroup(t, svc, groupID, 15)
	if err := svc.JoinGroup(ctx, groupID, joiner.ID); err != nil {
		t.Fatalf("JoinGroup(): %v", err)
	}

	t.Run("unknown request", func(t *testing.T) {
		if _, err := svc.ApproveRequest(ctx, groupID, "nobody"); err != family.ErrRequestNotFound {
			t.Errorf("error = %v; want %v", err, family.ErrRequestNotFound)
		}
	})

	t.Run("approval updates all three documents", func(t *testing.T) {
		member, err := svc.ApproveRequest(ctx, groupID, joiner.ID)
		if err != nil {
			t.Fatalf("ApproveRequest(): %v", err)
		}
		if member.UserID != joiner.ID {
			t.Errorf("member.UserID = %q; want %q", member.UserID, joiner.ID)
		}

		// owner: member appended, request consumed
		ownerDoc, err := repo.GetGroupOwner(ctx, groupID)
		if err != nil {
			t.Fatalf("GetGroupOwner(): %v", err)
		}
		if len(ownerDoc.FamilyGroup.Members) != 2 {
			t.Errorf("owner Members = %+v; want 2", ownerDoc.FamilyGroup.Members)
		}
		if len(ownerDoc.FamilyGroup.Requests) != 0 {
			t.Errorf("owner Requests = %+v; want empty", ownerDoc.FamilyGroup.Requests)
		}

		// joiner: fresh single-member approved copy, no discount carried
		joinerDoc, err := repo.GetUser(ctx, user.GetFilter{ID: joiner.ID})
		if err != nil {
			t.Fatalf("GetUser(): %v", err)
		}
		fg := joinerDoc.FamilyGroup
		if fg == nil {
			t.Fatal("joiner FamilyGroup not written")
		}
		if fg.Status != user.GroupStatusApproved {
			t.Errorf("joiner Status = %q; want %q", fg.Status, user.GroupStatusApproved)
		}
		if fg.CreatedBy != owner.ID {
			t.Errorf("joiner CreatedBy = %q; want %q", fg.CreatedBy, owner.ID)
		}
		if len(fg.Members) != 1 || fg.Members[0].UserID != joiner.ID {
			t.Errorf("joiner Members = %+v; want own snapshot only", fg.Members)
		}
		if fg.Discount != 0 {
			t.Errorf("joiner Discount = %v; want 0", fg.Discount)
		}
	})
}

func TestService_ApproveGroup(t *testing.T) {
	ctx := context.Background()
	svc, repo := setup(t)

	owner := testutil.CreateUser(t, repo, "Hassan Ka", "hassan@test.tn", "pwd", "")
	groupID, err := svc.CreateGroup(ctx, owner.ID)
	if err != nil {
		t.Fatalf("CreateGroup(): %v", err)
	}

	t.Run("discount out of range", func(t *testing.T) {
		if err := svc.ApproveGroup(ctx, groupID, 101); err == nil {
			t.Error("ApproveGroup() accepted discount > 100")
		}
		if err := svc.ApproveGroup(ctx, groupID, -1); err == nil {
			t.Error("ApproveGroup() accepted negative discount")
		}
	})

	t.Run("unknown group", func(t *testing.T) {
		if err := svc.ApproveGroup(ctx, "FAM-ZZZZZZ", 10); err != family.ErrGroupNotFound {
			t.Errorf("error = %v; want %v", err, family.ErrGroupNotFound)
		}
	})

	t.Run("pending to approved with discount", func(t *testing.T) {
		approveGroup(t, svc, groupID, 20)

		stored, err := repo.GetGroupOwner(ctx, groupID)
		if err != nil {
			t.Fatalf("GetGroupOwner(): %v", err)
		}
		if stored.FamilyGroup.Status != user.GroupStatusApproved {
			t.Errorf("Status = %q; want %q", stored.FamilyGroup.Status, user.GroupStatusApproved)
		}
		if stored.FamilyGroup.Discount != 20 {
			t.Errorf("Discount = %v; want 20", stored.FamilyGroup.Discount)
		}
	})

	t.Run("re-approval updates the discount", func(t *testing.T) {
		approveGroup(t, svc, groupID, 25)

		stored, err := repo.GetGroupOwner(ctx, groupID)
		if err != nil {
			t.Fatalf("GetGroupOwner(): %v", err)
		}
		if stored.FamilyGroup.Discount != 25 {
			t.Errorf("Discount = %v; want 25", stored.FamilyGroup.Discount)
		}
	})
}

func TestService_ResolveDiscount(t *testing.T) {
	ctx := context.Background()
	svc, repo := setup(t)

	owner := testutil.CreateUser(t, repo, "Hassan Ka", "hassan@test.tn", "pwd", "")
	loner := testutil.CreateUser(t, repo, "Sara Noor", "sara@test.tn", "pwd", "")

	groupID, err := svc.CreateGroup(ctx, owner.ID)
	if err != nil {
		t.Fatalf("CreateGroup(): %v", err)
	}

	t.Run("no group means zero", func(t *testing.T) {
		d, err := svc.ResolveDiscount(ctx, loner.ID)
		if err != nil || d != 0 {
			t.Errorf("ResolveDiscount() = %v, %v; want 0, nil", d, err)
		}
	})

	t.Run("unknown user means zero", func(t *testing.T) {
		d, err := svc.ResolveDiscount(ctx, "c1a6e2ff-0000-0000-0000-000000000000")
		if err != nil || d != 0 {
			t.Errorf("ResolveDiscount() = %v, %v; want 0, nil", d, err)
		}
	})

	t.Run("pending group means zero", func(t *testing.T) {
		d, err := svc.ResolveDiscount(ctx, owner.ID)
		if err != nil || d != 0 {
			t.Errorf("ResolveDiscount() = %v, %v; want 0, nil", d, err)
		}
	})

	t.Run("approved group yields its discount", func(t *testing.T) {
		approveGroup(t, svc, groupID, 30)

		d, err := svc.ResolveDiscount(ctx, owner.ID)
		if err != nil {
			t.Fatalf("ResolveDiscount(): %v", err)
		}
		if d != 30 {
			t.Errorf("ResolveDiscount() = %v; want 30", d)
		}
	})
}
