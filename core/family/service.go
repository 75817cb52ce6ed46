package family

import (
	"context"
	"fmt"
	"math/rand"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/asmaktab/backend/core"
	"github.com/asmaktab/backend/core/user"
)

var (
	// errors
	ErrGroupNotFound    = errors.New("family group not found")
	ErrRequestNotFound  = errors.New("join request not found")
	ErrAlreadyInGroup   = errors.New("you are already a member of a family group")
	ErrGroupNotApproved = errors.New("this group has not been approved yet")
	ErrDuplicateRequest = errors.New("you have already sent a join request to this group")
)

const groupCodePrefix = "FAM-"

var groupCodeChars = []byte("0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ")

type Service struct {
	repo    user.Repository
	mailSvc core.EmailService
	logger  core.Logger
}

func NewService(repo user.Repository, mailSvc core.EmailService, logger core.Logger) *Service {
	return &Service{repo: repo, mailSvc: mailSvc, logger: logger}
}

// generateGroupCode produces FAM- followed by a 6-character base-36 token,
// regenerating until no user record carries the candidate. Uniqueness is
// best-effort: two concurrent callers can both pass the existence check
// before either writes.
func (svc *Service) generateGroupCode(ctx context.Context) (string, error) {
	buf := make([]byte, 6)
	for {
		for i := range buf {
			buf[i] = groupCodeChars[rand.Intn(len(groupCodeChars))]
		}
		candidate := groupCodePrefix + string(buf)
		exists, err := svc.repo.GroupCodeExists(ctx, candidate)
		if err != nil {
			return "", errors.Wrap(err, "checking group code")
		}
		if !exists {
			return candidate, nil
		}
	}
}

// CreateGroup starts a new pending family group owned by userID. The owner's
// document receives the group with a single self snapshot as its members
// list; approval is a separate admin step (ApproveGroup).
func (svc *Service) CreateGroup(ctx context.Context, userID string) (string, error) {
	usr, err := svc.repo.GetUser(ctx, user.GetFilter{ID: userID})
	if err != nil {
		return "", err
	}
	if usr.FamilyGroup != nil {
		return "", core.NewValidationError(ErrAlreadyInGroup)
	}

	groupID, err := svc.generateGroupCode(ctx)
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	fg := &user.FamilyGroup{
		GroupID:   groupID,
		Status:    user.GroupStatusPending,
		CreatedBy: usr.ID,
		Members:   []user.GroupMember{usr.Snapshot(now)},
		CreatedAt: now,
	}
	if err := svc.repo.SetFamilyGroup(ctx, usr.ID, fg); err != nil {
		return "", errors.Wrap(err, "writing family group")
	}
	return groupID, nil
}

// JoinGroup queues a pending join request on the group owner's document.
// The group must already be approved before it can accept joiners.
func (svc *Service) JoinGroup(ctx context.Context, groupID, userID string) error {
	usr, err := svc.repo.GetUser(ctx, user.GetFilter{ID: userID})
	if err != nil {
		return err
	}
	if usr.FamilyGroup != nil {
		return core.NewValidationError(ErrAlreadyInGroup)
	}

	owner, err := svc.repo.GetGroupOwner(ctx, groupID)
	if err != nil {
		if err == user.ErrNotFound {
			return ErrGroupNotFound
		}
		return err
	}
	if !owner.FamilyGroup.IsApproved() {
		return core.NewValidationError(ErrGroupNotApproved)
	}
	if owner.FamilyGroup.HasPendingRequest(userID) {
		return core.NewValidationError(ErrDuplicateRequest)
	}

	req := user.JoinRequest{
		UserID:      userID,
		RequestedAt: time.Now().UTC(),
		Status:      user.RequestStatusPending,
	}
	if err := svc.repo.AppendJoinRequest(ctx, owner.ID, req); err != nil {
		return errors.Wrap(err, "queueing join request")
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: owner.Name, Address: owner.Email}},
		Subject: "New family group join request",
		BodyStr: fmt.Sprintf("%s asked to join your family group %s.", usr.Name, groupID),
	})
	return nil
}

// ApproveRequest consumes a pending join request: the joiner's snapshot is
// appended to the owner's members list, the joiner's own document gets a
// fresh single-member approved copy of the group (not the owner's full
// list), and the consumed request is removed from the owner's queue.
//
// These are three separate document writes with no surrounding transaction;
// a store failure part-way leaves the earlier writes committed.
func (svc *Service) ApproveRequest(ctx context.Context, groupID, userID string) (user.GroupMember, error) {
	owner, err := svc.repo.GetGroupOwner(ctx, groupID)
	if err != nil {
		if err == user.ErrNotFound {
			return user.GroupMember{}, ErrGroupNotFound
		}
		return user.GroupMember{}, err
	}

	reqIdx := -1
	for i, req := range owner.FamilyGroup.Requests {
		if req.UserID == userID {
			reqIdx = i
			break
		}
	}
	if reqIdx == -1 {
		return user.GroupMember{}, ErrRequestNotFound
	}

	joiner, err := svc.repo.GetUser(ctx, user.GetFilter{ID: userID})
	if err != nil {
		return user.GroupMember{}, err
	}

	now := time.Now().UTC()
	member := joiner.Snapshot(now)

	if err := svc.repo.AppendGroupMember(ctx, owner.ID, member); err != nil {
		return user.GroupMember{}, errors.Wrap(err, "appending group member")
	}

	fg := &user.FamilyGroup{
		GroupID:   groupID,
		Status:    user.GroupStatusApproved,
		CreatedBy: owner.ID,
		Members:   []user.GroupMember{member},
		CreatedAt: now,
	}
	if err := svc.repo.SetFamilyGroup(ctx, joiner.ID, fg); err != nil {
		return user.GroupMember{}, errors.Wrap(err, "writing joiner family group")
	}

	// whole-list rewrite: concurrent approvals on the same owner can work
	// from a stale array (known limitation)
	remaining := make([]user.JoinRequest, 0, len(owner.FamilyGroup.Requests)-1)
	remaining = append(remaining, owner.FamilyGroup.Requests[:reqIdx]...)
	remaining = append(remaining, owner.FamilyGroup.Requests[reqIdx+1:]...)
	if err := svc.repo.SetJoinRequests(ctx, owner.ID, remaining); err != nil {
		return user.GroupMember{}, errors.Wrap(err, "trimming join requests")
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: joiner.Name, Address: joiner.Email}},
		Subject: "Family group request approved",
		BodyStr: fmt.Sprintf("Welcome! You are now a member of family group %s.", groupID),
	})
	return member, nil
}

// ApproveGroup is the admin transition pending -> approved on the owner's own
// document, recording the group discount percentage. Approving an already
// approved group just updates the discount.
func (svc *Service) ApproveGroup(ctx context.Context, groupID string, discount float64) error {
	if discount < 0 || discount > 100 {
		return core.NewValidationError(nil, core.FieldError{Field: "discount", Error: "discount must be between 0 and 100"})
	}

	owner, err := svc.repo.GetGroupOwner(ctx, groupID)
	if err != nil {
		if err == user.ErrNotFound {
			return ErrGroupNotFound
		}
		return err
	}

	fg := owner.FamilyGroup
	fg.Status = user.GroupStatusApproved
	fg.Discount = discount
	if err := svc.repo.SetFamilyGroup(ctx, owner.ID, fg); err != nil {
		return errors.Wrap(err, "approving family group")
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: owner.Name, Address: owner.Email}},
		Subject: "Family group approved",
		BodyStr: fmt.Sprintf("Your family group %s has been approved with a %.0f%% discount.", groupID, discount),
	})
	return nil
}

// ResolveDiscount maps a user's approved-group membership to a percentage.
// The value is a point-in-time snapshot for the caller to persist; it is
// never recomputed retroactively.
func (svc *Service) ResolveDiscount(ctx context.Context, userID string) (float64, error) {
	usr, err := svc.repo.GetUser(ctx, user.GetFilter{ID: userID})
	if err != nil {
		if err == user.ErrNotFound {
			return 0, nil
		}
		return 0, err
	}
	if usr.FamilyGroup == nil {
		return 0, nil
	}

	// the discount lives on the owner's document; a joiner's copy carries none
	owner, err := svc.repo.GetGroupOwner(ctx, usr.FamilyGroup.GroupID)
	if err != nil {
		if err == user.ErrNotFound {
			return 0, nil
		}
		return 0, err
	}
	if !owner.FamilyGroup.IsApproved() {
		return 0, nil
	}
	return owner.FamilyGroup.Discount, nil
}
