package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Ayesha-Taranum/SourceVoid/internal/app/model"
	"github.com/Ayesha-Taranum/SourceVoid/internal/app/repository"
	"github.com/Ayesha-Taranum/SourceVoid/internal/app/secret"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

var (
	// ErrRoomExpired signals that the room's time or view policy has
	// tripped. Terminal; rooms never come back.
	ErrRoomExpired = errors.New("room expired")
	// ErrPasswordRequired signals a protected room opened without a
	// credential.
	ErrPasswordRequired = errors.New("room password required")
	// ErrPasswordInvalid signals a wrong credential.
	ErrPasswordInvalid = errors.New("room password invalid")
)

const createRetries = 3

// RoomService sequences expiration, credential and view-count checks
// into the single entry point the HTTP layer calls.
type RoomService interface {
	Open(ctx context.Context, id, password string) (*model.Room, error)
	Save(ctx context.Context, id, password string, input SaveInput) error
	Create(ctx context.Context, input CreateRoomInput) (*model.Room, error)
}

type roomService struct {
	repo       repository.RoomRepository
	defaultTTL time.Duration
	idLength   int
}

// Options tunes room defaults; zero values fall back to 24h / 10.
type Options struct {
	DefaultTTL time.Duration
	IDLength   int
}

// NewRoomService returns a service implementation backed by the given repository.
func NewRoomService(repo repository.RoomRepository, opts Options) RoomService {
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = 24 * time.Hour
	}
	if opts.IDLength <= 0 {
		opts.IDLength = 10
	}
	return &roomService{
		repo:       repo,
		defaultTTL: opts.DefaultTTL,
		idLength:   opts.IDLength,
	}
}

// CreateRoomInput captures the explicit-create parameters.
type CreateRoomInput struct {
	Password        string
	ExpirationType  string
	ExpirationValue int
	Language        string
}

// SaveInput captures a content save.
type SaveInput struct {
	Content  string
	Language string
}

// Open grants or denies a read. Order matters: liveness is evaluated
// against the pre-increment view count, so a room already at its
// limit denies before the counter moves; credential failures deny
// without consuming a view; only a full grant runs the guarded
// increment, whose post-increment row is returned.
func (s *roomService) Open(ctx context.Context, id, password string) (*model.Room, error) {
	now := time.Now()

	room, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrRoomNotFound) {
		// First visit of an unknown id creates the room with the
		// default time policy. Idempotent under concurrent first
		// visits; the pipeline continues on whichever row won.
		expiresAt := now.Add(s.defaultTTL)
		room, err = s.repo.CreateIfAbsent(ctx, &model.Room{
			ID:        id,
			Content:   "",
			Language:  model.DefaultLanguage,
			ExpiresAt: &expiresAt,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("open room: %w", err)
	}

	if !room.AliveAt(now) {
		return nil, ErrRoomExpired
	}

	if room.Protected() {
		if password == "" {
			return nil, ErrPasswordRequired
		}
		if !secret.Verify(room.SecretHash, password) {
			return nil, ErrPasswordInvalid
		}
	}

	room, err = s.repo.IncrementViewAndFetch(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrViewsExhausted) {
			// A concurrent reader took the last view between the
			// liveness check and the increment.
			return nil, ErrRoomExpired
		}
		return nil, fmt.Errorf("consume view: %w", err)
	}
	return room, nil
}

// Save overwrites the room content, last writer wins. Existence and
// credential are checked; view expiry is not, and no view is
// consumed. Time expiry is enforced inside the update statement, a
// dead-by-time room reports not found just like a vanished one.
func (s *roomService) Save(ctx context.Context, id, password string, input SaveInput) error {
	room, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return err
		}
		return fmt.Errorf("load room: %w", err)
	}

	if room.Protected() {
		if password == "" {
			return ErrPasswordRequired
		}
		if !secret.Verify(room.SecretHash, password) {
			return ErrPasswordInvalid
		}
	}

	if err := s.repo.ReplaceContent(ctx, id, input.Content, input.Language, time.Now()); err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return err
		}
		return fmt.Errorf("save room: %w", err)
	}
	return nil
}

// Create makes a room with a server-generated id and the chosen
// expiration policy. Id collisions retry internally with a fresh id
// and are never surfaced unless retries are exhausted.
func (s *roomService) Create(ctx context.Context, input CreateRoomInput) (*model.Room, error) {
	now := time.Now()
	expiresAt, maxViews := model.ExpirationFor(input.ExpirationType, input.ExpirationValue, now, s.defaultTTL)

	language := input.Language
	if language == "" {
		language = model.DefaultLanguage
	}

	var secretHash string
	if input.Password != "" {
		h, err := secret.Hash(input.Password)
		if err != nil {
			return nil, fmt.Errorf("create room: %w", err)
		}
		secretHash = h
	}

	var lastErr error
	for attempt := 0; attempt < createRetries; attempt++ {
		id, err := gonanoid.New(s.idLength)
		if err != nil {
			return nil, fmt.Errorf("create room: generate id: %w", err)
		}

		room := &model.Room{
			ID:         id,
			Content:    "",
			Language:   language,
			SecretHash: secretHash,
			MaxViews:   maxViews,
			ExpiresAt:  expiresAt,
		}
		if err := s.repo.Create(ctx, room); err != nil {
			if errors.Is(err, repository.ErrRoomExists) {
				lastErr = err
				continue
			}
			return nil, fmt.Errorf("create room: %w", err)
		}
		return room, nil
	}
	return nil, fmt.Errorf("create room: %w", lastErr)
}
