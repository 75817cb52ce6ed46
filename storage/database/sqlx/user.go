package sqlxrepos

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/asmaktab/backend/core/user"
)

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

// familyGroupCol maps the embedded FamilyGroup document to a JSONB column.
type familyGroupCol struct {
	FG *user.FamilyGroup
}

func (c familyGroupCol) Value() (driver.Value, error) {
	if c.FG == nil {
		return nil, nil
	}
	return json.Marshal(c.FG)
}

func (c *familyGroupCol) Scan(src interface{}) error {
	if src == nil {
		c.FG = nil
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return errors.Errorf("scanning family_group: unexpected type %T", src)
	}
	fg := new(user.FamilyGroup)
	if err := json.Unmarshal(b, fg); err != nil {
		return errors.Wrap(err, "scanning family_group")
	}
	c.FG = fg
	return nil
}

type userRow struct {
	ID            string         `db:"id"`
	Name          string         `db:"name"`
	FatherName    null.String    `db:"father_name"`
	PhoneNo       null.String    `db:"phone_no"`
	Email         string         `db:"email"`
	Role          string         `db:"role"`
	PasswordHash  null.Bytes     `db:"password_hash"`
	ReferralCode  string         `db:"referral_code"`
	ReferredBy    null.String    `db:"referred_by"`
	ReferralCount int            `db:"referral_count"`
	FamilyGroup   familyGroupCol `db:"family_group"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

func (repo userRepository) row(usr user.User) userRow {
	return userRow{
		ID:            usr.ID,
		Name:          usr.Name,
		FatherName:    null.NewString(usr.FatherName, usr.FatherName != ""),
		PhoneNo:       null.NewString(usr.PhoneNo, usr.PhoneNo != ""),
		Email:         usr.Email,
		Role:          usr.Role,
		PasswordHash:  null.BytesFrom(usr.PasswordHash),
		ReferralCode:  usr.ReferralCode,
		ReferredBy:    null.NewString(usr.ReferredBy, usr.ReferredBy != ""),
		ReferralCount: usr.ReferralCount,
		FamilyGroup:   familyGroupCol{FG: usr.FamilyGroup},
		CreatedAt:     usr.CreatedAt.UTC(),
		UpdatedAt:     usr.UpdatedAt.UTC(),
	}
}

func (repo userRepository) unrow(row userRow) user.User {
	return user.User{
		ID:            row.ID,
		Name:          row.Name,
		FatherName:    row.FatherName.String,
		PhoneNo:       row.PhoneNo.String,
		Email:         row.Email,
		Role:          row.Role,
		PasswordHash:  row.PasswordHash.Bytes,
		ReferralCode:  row.ReferralCode,
		ReferredBy:    row.ReferredBy.String,
		ReferralCount: row.ReferralCount,
		FamilyGroup:   row.FamilyGroup.FG,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}

func (repo userRepository) unrowSlice(rows []userRow) []user.User {
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, repo.unrow(row))
	}
	return users
}

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func (repo userRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...user.User) error {
	query := `SELECT EXISTS (SELECT 1 FROM "user" WHERE email = ?)`
	args := []interface{}{email}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		var err error
		query, args, err = sqlx.In(`SELECT EXISTS (SELECT 1 FROM "user" WHERE email = ? AND id NOT IN (?))`, email, ids)
		if err != nil {
			return errors.Wrap(err, "checking email uniqueness")
		}
	}

	var exists bool
	if err := repo.db.GetContext(ctx, &exists, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if exists {
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	row := repo.row(usr)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO "user" (id, name, father_name, phone_no, email, role, password_hash,
		                    referral_code, referred_by, referral_count, family_group, created_at, updated_at)
		VALUES (:id, :name, :father_name, :phone_no, :email, :role, :password_hash,
		        :referral_code, :referred_by, :referral_count, :family_group, :created_at, :updated_at)`, row)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) QueryAllUsers(ctx context.Context) ([]user.User, error) {
	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM "user" ORDER BY created_at`); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return repo.unrowSlice(rows), nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var query string
	var arg interface{}

	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return user.User{}, user.ErrNotFound
		}
		query, arg = `SELECT * FROM "user" WHERE id = $1`, filter.ID
	case filter.Email != "":
		query, arg = `SELECT * FROM "user" WHERE email = $1`, filter.Email
	case filter.ReferralCode != "":
		query, arg = `SELECT * FROM "user" WHERE referral_code = $1`, filter.ReferralCode
	default:
		return user.User{}, user.ErrNotFound
	}

	var row userRow
	if err := repo.db.GetContext(ctx, &row, query, arg); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "finding user")
	}
	return repo.unrow(row), nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	row := repo.row(usr)
	_, err := repo.db.NamedExecContext(ctx, `
		UPDATE "user"
		SET name = :name, father_name = :father_name, phone_no = :phone_no, email = :email,
		    role = :role, password_hash = :password_hash, family_group = :family_group,
		    updated_at = :updated_at
		WHERE id = :id`, row)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	return usr, nil
}

func (repo userRepository) IncrementReferralCount(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `
		UPDATE "user" SET referral_count = referral_count + 1, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "incrementing referral count")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (repo userRepository) GetGroupOwner(ctx context.Context, groupID string) (user.User, error) {
	// the owner is the one record whose embedded group references itself as creator
	var row userRow
	err := repo.db.GetContext(ctx, &row, `
		SELECT * FROM "user"
		WHERE family_group ->> 'groupId' = $1 AND family_group ->> 'createdBy' = id::text`, groupID)
	if err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "finding group owner")
	}
	return repo.unrow(row), nil
}

func (repo userRepository) GroupCodeExists(ctx context.Context, groupID string) (bool, error) {
	var exists bool
	err := repo.db.GetContext(ctx, &exists, `
		SELECT EXISTS (SELECT 1 FROM "user" WHERE family_group ->> 'groupId' = $1)`, groupID)
	if err != nil {
		return false, errors.Wrap(err, "checking group code")
	}
	return exists, nil
}

func (repo userRepository) SetFamilyGroup(ctx context.Context, userID string, fg *user.FamilyGroup) error {
	res, err := repo.db.ExecContext(ctx, `
		UPDATE "user" SET family_group = $2, updated_at = NOW() WHERE id = $1`, userID, familyGroupCol{FG: fg})
	if err != nil {
		return errors.Wrap(err, "writing family group")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (repo userRepository) AppendGroupMember(ctx context.Context, ownerID string, m user.GroupMember) error {
	data, err := json.Marshal(m)
	if err != nil {
		return errors.Wrap(err, "marshalling group member")
	}
	// single-statement in-document append
	res, err := repo.db.ExecContext(ctx, `
		UPDATE "user"
		SET family_group = jsonb_set(family_group, '{members}',
		                             COALESCE(family_group -> 'members', '[]'::jsonb) || $2::jsonb),
		    updated_at   = NOW()
		WHERE id = $1 AND family_group IS NOT NULL`, ownerID, data)
	if err != nil {
		return errors.Wrap(err, "appending group member")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (repo userRepository) AppendJoinRequest(ctx context.Context, ownerID string, r user.JoinRequest) error {
	data, err := json.Marshal(r)
	if err != nil {
		return errors.Wrap(err, "marshalling join request")
	}
	res, err := repo.db.ExecContext(ctx, `
		UPDATE "user"
		SET family_group = jsonb_set(family_group, '{requests}',
		                             COALESCE(family_group -> 'requests', '[]'::jsonb) || $2::jsonb),
		    updated_at   = NOW()
		WHERE id = $1 AND family_group IS NOT NULL`, ownerID, data)
	if err != nil {
		return errors.Wrap(err, "appending join request")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (repo userRepository) SetJoinRequests(ctx context.Context, ownerID string, reqs []user.JoinRequest) error {
	data, err := json.Marshal(reqs)
	if err != nil {
		return errors.Wrap(err, "marshalling join requests")
	}
	res, err := repo.db.ExecContext(ctx, `
		UPDATE "user"
		SET family_group = jsonb_set(family_group, '{requests}', $2::jsonb),
		    updated_at   = NOW()
		WHERE id = $1 AND family_group IS NOT NULL`, ownerID, data)
	if err != nil {
		return errors.Wrap(err, "rewriting join requests")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return user.ErrNotFound
	}
	return nil
}
