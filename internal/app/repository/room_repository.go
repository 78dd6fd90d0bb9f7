package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Ayesha-Taranum/SourceVoid/internal/app/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrRoomNotFound signals that the requested room does not exist.
	ErrRoomNotFound = errors.New("room not found")
	// ErrRoomExists signals an id collision on explicit create.
	ErrRoomExists = errors.New("room already exists")
	// ErrViewsExhausted signals that the guarded view increment found
	// the room already at its view limit.
	ErrViewsExhausted = errors.New("room views exhausted")
)

// RoomRepository defines the data access contract for rooms. Every
// operation is a single bounded round trip except the loss paths of
// IncrementViewAndFetch, which re-read once to classify the failure.
type RoomRepository interface {
	Create(ctx context.Context, room *model.Room) error
	CreateIfAbsent(ctx context.Context, room *model.Room) (*model.Room, error)
	GetByID(ctx context.Context, id string) (*model.Room, error)
	IncrementViewAndFetch(ctx context.Context, id string) (*model.Room, error)
	ReplaceContent(ctx context.Context, id, content, language string, now time.Time) error
	DeleteDead(ctx context.Context, deadBefore time.Time) (int64, error)
}

type roomRepository struct {
	db *gorm.DB
}

// NewRoomRepository returns a GORM-backed RoomRepository.
func NewRoomRepository(db *gorm.DB) RoomRepository {
	return &roomRepository{db: db}
}

func (r *roomRepository) Create(ctx context.Context, room *model.Room) error {
	if err := r.db.WithContext(ctx).Create(room).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrRoomExists
		}
		return err
	}
	return nil
}

// CreateIfAbsent inserts the room unless its id is already taken and
// returns the row that ended up in the table either way. A lost
// insert race resolves to the winner's row, never an overwrite.
func (r *roomRepository) CreateIfAbsent(ctx context.Context, room *model.Room) (*model.Room, error) {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(room).Error
	if err != nil {
		return nil, err
	}

	var stored model.Room
	if err := r.db.WithContext(ctx).Where("id = ?", room.ID).First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *roomRepository) GetByID(ctx context.Context, id string) (*model.Room, error) {
	var room model.Room
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&room).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return &room, nil
}

// IncrementViewAndFetch consumes one view and returns the
// post-increment row in a single guarded statement. The guard makes
// admission and increment atomic: two concurrent readers racing for
// the last view of a max_views room get exactly one updated row
// between them.
func (r *roomRepository) IncrementViewAndFetch(ctx context.Context, id string) (*model.Room, error) {
	var room model.Room
	res := r.db.WithContext(ctx).Raw(
		`UPDATE rooms
		 SET current_views = current_views + 1
		 WHERE id = ? AND (max_views = 0 OR current_views < max_views)
		 RETURNING id, content, language, secret_hash, max_views, current_views, expires_at, created_at`,
		id,
	).Scan(&room)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// Either the room vanished or a concurrent reader took the
		// last view; re-read once to tell the two apart.
		if _, err := r.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrViewsExhausted
	}
	return &room, nil
}

// ReplaceContent overwrites content (and language, when non-empty)
// for a live row. Time expiry is enforced inside the statement; view
// expiry is deliberately not rechecked, a save never consumes views.
func (r *roomRepository) ReplaceContent(ctx context.Context, id, content, language string, now time.Time) error {
	updates := map[string]interface{}{"content": content}
	if language != "" {
		updates["language"] = language
	}

	res := r.db.WithContext(ctx).
		Model(&model.Room{}).
		Where("id = ? AND (expires_at IS NULL OR expires_at > ?)", id, now).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRoomNotFound
	}
	return nil
}

// DeleteDead physically removes rooms whose policy tripped before
// deadBefore. View-dead rooms carry no death timestamp, so their
// creation time stands in as the conservative bound.
func (r *roomRepository) DeleteDead(ctx context.Context, deadBefore time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("(expires_at IS NOT NULL AND expires_at < ?) OR (max_views > 0 AND current_views >= max_views AND created_at < ?)",
			deadBefore, deadBefore).
		Delete(&model.Room{})
	return res.RowsAffected, res.Error
}
