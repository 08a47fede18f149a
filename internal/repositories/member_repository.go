package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"watch-party-service/internal/models"
)

// MemberRepository abstracts party membership persistence.
type MemberRepository interface {
	Get(ctx context.Context, partyID, userID int) (models.PartyMember, error)
	JoinOnline(ctx context.Context, partyID, userID int) error
	SetOnline(ctx context.Context, partyID, userID int, online bool) error
	SetBanned(ctx context.Context, partyID, userID int, banned bool) error
	Readmit(ctx context.Context, partyID, userID int) error
	ListMembers(ctx context.Context, partyID int) ([]models.MemberView, error)
}

// MemberRepo is a sqlx implementation of MemberRepository.
type MemberRepo struct {
	db *sqlx.DB
}

// NewMemberRepo constructs a MemberRepo.
func NewMemberRepo(db *sqlx.DB) *MemberRepo {
	return &MemberRepo{db: db}
}

// Get fetches a single member row.
func (r *MemberRepo) Get(ctx context.Context, partyID, userID int) (models.PartyMember, error) {
	var member models.PartyMember
	err := r.db.GetContext(ctx, &member,
		`SELECT party_id, user_id, role, is_online, is_banned, created_at, updated_at
         FROM party_members WHERE party_id=$1 AND user_id=$2`, partyID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.PartyMember{}, ErrMemberNotFound
	}
	return member, err
}

// JoinOnline upserts a member as online, creating a participant row on first
// join. Existing role and ban state are left untouched.
func (r *MemberRepo) JoinOnline(ctx context.Context, partyID, userID int) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO party_members (party_id, user_id, role, is_online)
        VALUES ($1, $2, $3, TRUE)
        ON CONFLICT (party_id, user_id) DO UPDATE SET is_online = TRUE, updated_at = NOW()`,
		partyID, userID, models.RoleParticipant)
	return err
}

// SetOnline flips the per-room online flag. Rows are never deleted so ban and
// role history persist across sessions.
func (r *MemberRepo) SetOnline(ctx context.Context, partyID, userID int, online bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE party_members SET is_online=$1, updated_at = NOW() WHERE party_id=$2 AND user_id=$3`,
		online, partyID, userID)
	return err
}

// SetBanned flips the ban flag.
func (r *MemberRepo) SetBanned(ctx context.Context, partyID, userID int, banned bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE party_members SET is_banned=$1, updated_at = NOW() WHERE party_id=$2 AND user_id=$3`,
		banned, partyID, userID)
	return err
}

// Readmit clears the ban and brings the member back online in one statement.
func (r *MemberRepo) Readmit(ctx context.Context, partyID, userID int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE party_members SET is_banned = FALSE, is_online = TRUE, updated_at = NOW()
         WHERE party_id=$1 AND user_id=$2`, partyID, userID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMemberNotFound
	}
	return nil
}

// ListMembers returns the roster joined with user identity, hosts first.
func (r *MemberRepo) ListMembers(ctx context.Context, partyID int) ([]models.MemberView, error) {
	var members []models.MemberView
	err := r.db.SelectContext(ctx, &members,
		`SELECT pm.user_id, u.username,
                COALESCE(u.display_name, u.username) AS display_name,
                COALESCE(u.avatar_url, '') AS avatar_url,
                pm.role, pm.is_online, pm.is_banned
         FROM party_members pm
         INNER JOIN users u ON u.id = pm.user_id
         WHERE pm.party_id=$1
         ORDER BY (pm.role = 'host') DESC, pm.created_at ASC`, partyID)
	return members, err
}
