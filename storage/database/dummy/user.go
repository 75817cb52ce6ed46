package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/asmaktab/backend/core/user"
)

type userRepository struct {
	db *userTable
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db.user}
}

// clone deep-copies a user so callers never alias the stored document.
func clone(usr user.User) user.User {
	cp := usr
	if usr.FamilyGroup != nil {
		fg := *usr.FamilyGroup
		fg.Members = append([]user.GroupMember(nil), usr.FamilyGroup.Members...)
		fg.Requests = append([]user.JoinRequest(nil), usr.FamilyGroup.Requests...)
		cp.FamilyGroup = &fg
	}
	return cp
}

func (repo *userRepository) query() []user.User {
	users := make([]user.User, 0, len(repo.db.table))
	for _, u := range repo.db.table {
		users = append(users, clone(*u))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	return users
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...user.User) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	excluded := make(map[string]bool, len(excludedUsers))
	for _, usr := range excludedUsers {
		excluded[usr.ID] = true
	}
	for _, usr := range repo.db.table {
		if usr.Email == email && !excluded[usr.ID] {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	usr.ID = uuid.New().String()
	stored := clone(usr)
	repo.db.table[usr.ID] = &stored
	return usr, nil
}

func (repo *userRepository) QueryAllUsers(ctx context.Context) ([]user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.query(), nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, usr := range repo.db.table {
		switch {
		case filter.ID != "" && usr.ID == filter.ID,
			filter.Email != "" && usr.Email == filter.Email,
			filter.ReferralCode != "" && usr.ReferralCode == filter.ReferralCode:
			return clone(*usr), nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	stored := clone(usr)
	repo.db.table[usr.ID] = &stored
	return usr, nil
}

func (repo *userRepository) IncrementReferralCount(ctx context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	usr, ok := repo.db.table[id]
	if !ok {
		return user.ErrNotFound
	}
	usr.ReferralCount++
	return nil
}

func (repo *userRepository) GetGroupOwner(ctx context.Context, groupID string) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, usr := range repo.db.table {
		if fg := usr.FamilyGroup; fg != nil && fg.GroupID == groupID && fg.CreatedBy == usr.ID {
			return clone(*usr), nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GroupCodeExists(ctx context.Context, groupID string) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, usr := range repo.db.table {
		if usr.FamilyGroup != nil && usr.FamilyGroup.GroupID == groupID {
			return true, nil
		}
	}
	return false, nil
}

func (repo *userRepository) SetFamilyGroup(ctx context.Context, userID string, fg *user.FamilyGroup) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	usr, ok := repo.db.table[userID]
	if !ok {
		return user.ErrNotFound
	}
	usr.FamilyGroup = fg
	stored := clone(*usr)
	repo.db.table[userID] = &stored
	return nil
}

func (repo *userRepository) AppendGroupMember(ctx context.Context, ownerID string, m user.GroupMember) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	usr, ok := repo.db.table[ownerID]
	if !ok || usr.FamilyGroup == nil {
		return user.ErrNotFound
	}
	usr.FamilyGroup.Members = append(usr.FamilyGroup.Members, m)
	return nil
}

func (repo *userRepository) AppendJoinRequest(ctx context.Context, ownerID string, r user.JoinRequest) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	usr, ok := repo.db.table[ownerID]
	if !ok || usr.FamilyGroup == nil {
		return user.ErrNotFound
	}
	usr.FamilyGroup.Requests = append(usr.FamilyGroup.Requests, r)
	return nil
}

func (repo *userRepository) SetJoinRequests(ctx context.Context, ownerID string, reqs []user.JoinRequest) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	usr, ok := repo.db.table[ownerID]
	if !ok || usr.FamilyGroup == nil {
		return user.ErrNotFound
	}
	usr.FamilyGroup.Requests = append([]user.JoinRequest(nil), reqs...)
	return nil
}
