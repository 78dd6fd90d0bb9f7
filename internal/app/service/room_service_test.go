package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Ayesha-Taranum/SourceVoid/internal/app/model"
	"github.com/Ayesha-Taranum/SourceVoid/internal/app/repository"
	"github.com/Ayesha-Taranum/SourceVoid/internal/app/secret"
)

type mockRoomRepository struct {
	createFn         func(ctx context.Context, room *model.Room) error
	createIfAbsentFn func(ctx context.Context, room *model.Room) (*model.Room, error)
	getFn            func(ctx context.Context, id string) (*model.Room, error)
	incrementFn      func(ctx context.Context, id string) (*model.Room, error)
	replaceFn        func(ctx context.Context, id, content, language string, now time.Time) error
	deleteDeadFn     func(ctx context.Context, deadBefore time.Time) (int64, error)
}

func (m *mockRoomRepository) Create(ctx context.Context, room *model.Room) error {
	if m.createFn != nil {
		return m.createFn(ctx, room)
	}
	return nil
}

func (m *mockRoomRepository) CreateIfAbsent(ctx context.Context, room *model.Room) (*model.Room, error) {
	if m.createIfAbsentFn != nil {
		return m.createIfAbsentFn(ctx, room)
	}
	return room, nil
}

func (m *mockRoomRepository) GetByID(ctx context.Context, id string) (*model.Room, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, repository.ErrRoomNotFound
}

func (m *mockRoomRepository) IncrementViewAndFetch(ctx context.Context, id string) (*model.Room, error) {
	if m.incrementFn != nil {
		return m.incrementFn(ctx, id)
	}
	return nil, repository.ErrRoomNotFound
}

func (m *mockRoomRepository) ReplaceContent(ctx context.Context, id, content, language string, now time.Time) error {
	if m.replaceFn != nil {
		return m.replaceFn(ctx, id, content, language, now)
	}
	return nil
}

func (m *mockRoomRepository) DeleteDead(ctx context.Context, deadBefore time.Time) (int64, error) {
	if m.deleteDeadFn != nil {
		return m.deleteDeadFn(ctx, deadBefore)
	}
	return 0, nil
}

func TestRoomService_Open_AutoCreate(t *testing.T) {
	var created *model.Room
	repo := &mockRoomRepository{
		getFn: func(ctx context.Context, id string) (*model.Room, error) {
			return nil, repository.ErrRoomNotFound
		},
		createIfAbsentFn: func(ctx context.Context, room *model.Room) (*model.Room, error) {
			created = room
			return room, nil
		},
		incrementFn: func(ctx context.Context, id string) (*model.Room, error) {
			created.CurrentViews++
			return created, nil
		},
	}

	svc := NewRoomService(repo, Options{DefaultTTL: 24 * time.Hour})
	room, err := svc.Open(context.Background(), "abc123", "")
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}

	if created == nil {
		t.Fatal("expected auto-create for unknown id")
	}
	if created.ID != "abc123" || created.Content != "" {
		t.Fatalf("auto-created room = %+v, want empty room abc123", created)
	}
	if created.Language != model.DefaultLanguage {
		t.Fatalf("language = %q, want %q", created.Language, model.DefaultLanguage)
	}
	if created.ExpiresAt == nil {
		t.Fatal("auto-created room must carry the default time policy")
	}
	if ttl := time.Until(*created.ExpiresAt); ttl < 23*time.Hour || ttl > 24*time.Hour {
		t.Fatalf("default TTL = %v, want about 24h", ttl)
	}
	if room.CurrentViews != 1 {
		t.Fatalf("currentViews = %d, want 1 after first grant", room.CurrentViews)
	}
}

func TestRoomService_Open_ExpiredByTime(t *testing.T) {
	past := time.Now().Add(-time.Minute)
	incremented := false
	repo := &mockRoomRepository{
		getFn: func(ctx context.Context, id string) (*model.Room, error) {
			return &model.Room{ID: id, ExpiresAt: &past}, nil
		},
		incrementFn: func(ctx context.Context, id string) (*model.Room, error) {
			incremented = true
			return nil, nil
		},
	}

	svc := NewRoomService(repo, Options{})
	_, err := svc.Open(context.Background(), "dead", "")
	if !errors.Is(err, ErrRoomExpired) {
		t.Fatalf("expected ErrRoomExpired, got %v", err)
	}
	if incremented {
		t.Fatal("expired room must not consume a view")
	}
}

func TestRoomService_Open_ExpiredByViews(t *testing.T) {
	incremented := false
	repo := &mockRoomRepository{
		getFn: func(ctx context.Context, id string) (*model.Room, error) {
			return &model.Room{ID: id, MaxViews: 3, CurrentViews: 3}, nil
		},
		incrementFn: func(ctx context.Context, id string) (*model.Room, error) {
			incremented = true
			return nil, nil
		},
	}

	svc := NewRoomService(repo, Options{})
	_, err := svc.Open(context.Background(), "spent", "")
	if !errors.Is(err, ErrRoomExpired) {
		t.Fatalf("expected ErrRoomExpired, got %v", err)
	}
	if incremented {
		t.Fatal("the pre-increment check must deny before the counter moves")
	}
}

func TestRoomService_Open_PasswordGate(t *testing.T) {
	hash, err := secret.Hash("hunter2")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	future := time.Now().Add(time.Hour)
	room := &model.Room{ID: "locked", SecretHash: hash, ExpiresAt: &future}

	repo := &mockRoomRepository{
		getFn: func(ctx context.Context, id string) (*model.Room, error) {
			return room, nil
		},
		incrementFn: func(ctx context.Context, id string) (*model.Room, error) {
			room.CurrentViews++
			return room, nil
		},
	}
	svc := NewRoomService(repo, Options{})

	if _, err := svc.Open(context.Background(), "locked", ""); !errors.Is(err, ErrPasswordRequired) {
		t.Fatalf("missing credential: expected ErrPasswordRequired, got %v", err)
	}
	if _, err := svc.Open(context.Background(), "locked", "wrong"); !errors.Is(err, ErrPasswordInvalid) {
		t.Fatalf("wrong credential: expected ErrPasswordInvalid, got %v", err)
	}
	if room.CurrentViews != 0 {
		t.Fatalf("denied opens must not consume views, counter = %d", room.CurrentViews)
	}

	got, err := svc.Open(context.Background(), "locked", "hunter2")
	if err != nil {
		t.Fatalf("correct credential: %v", err)
	}
	if got.CurrentViews != 1 {
		t.Fatalf("currentViews = %d, want 1", got.CurrentViews)
	}
}

func TestRoomService_Open_IncrementRace(t *testing.T) {
	// The increment reports exhaustion when a concurrent reader took
	// the last view after the liveness check; the caller sees Expired.
	repo := &mockRoomRepository{
		getFn: func(ctx context.Context, id string) (*model.Room, error) {
			return &model.Room{ID: id, MaxViews: 1, CurrentViews: 0}, nil
		},
		incrementFn: func(ctx context.Context, id string) (*model.Room, error) {
			return nil, repository.ErrViewsExhausted
		},
	}

	svc := NewRoomService(repo, Options{})
	_, err := svc.Open(context.Background(), "contended", "")
	if !errors.Is(err, ErrRoomExpired) {
		t.Fatalf("expected ErrRoomExpired, got %v", err)
	}
}

// atomicRoomRepo models the store's guarded increment: admission and
// counter move under one lock, the same way the SQL statement is one
// atomic update.
type atomicRoomRepo struct {
	mockRoomRepository

	mu   sync.Mutex
	room model.Room
}

func (a *atomicRoomRepo) GetByID(ctx context.Context, id string) (*model.Room, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	snapshot := a.room
	return &snapshot, nil
}

func (a *atomicRoomRepo) IncrementViewAndFetch(ctx context.Context, id string) (*model.Room, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.room.MaxViews > 0 && a.room.CurrentViews >= a.room.MaxViews {
		return nil, repository.ErrViewsExhausted
	}
	a.room.CurrentViews++
	snapshot := a.room
	return &snapshot, nil
}

func TestRoomService_Open_ConcurrentViewLimit(t *testing.T) {
	const attempts = 8
	const remaining = 3

	repo := &atomicRoomRepo{room: model.Room{ID: "last", MaxViews: remaining}}
	svc := NewRoomService(repo, Options{})

	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Open(context.Background(), "last", "")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var served, expired int
	for err := range results {
		switch {
		case err == nil:
			served++
		case errors.Is(err, ErrRoomExpired):
			expired++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if served != remaining {
		t.Fatalf("served = %d, want exactly %d", served, remaining)
	}
	if expired != attempts-remaining {
		t.Fatalf("expired = %d, want %d", expired, attempts-remaining)
	}
	if repo.room.CurrentViews != remaining {
		t.Fatalf("currentViews = %d, must never exceed maxViews %d", repo.room.CurrentViews, remaining)
	}
}

func TestRoomService_Create_ViewPolicy(t *testing.T) {
	var created *model.Room
	repo := &mockRoomRepository{
		createFn: func(ctx context.Context, room *model.Room) error {
			created = room
			return nil
		},
	}

	svc := NewRoomService(repo, Options{IDLength: 10})
	room, err := svc.Create(context.Background(), CreateRoomInput{
		ExpirationType:  model.ExpirationViews,
		ExpirationValue: 1,
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if len(room.ID) != 10 {
		t.Fatalf("id length = %d, want 10", len(room.ID))
	}
	if created.MaxViews != 1 || created.ExpiresAt != nil {
		t.Fatalf("view policy room = %+v, want maxViews=1 and no deadline", created)
	}
	if created.SecretHash != "" {
		t.Fatal("room without password must not carry a secret hash")
	}
}

func TestRoomService_Create_PasswordHashed(t *testing.T) {
	var created *model.Room
	repo := &mockRoomRepository{
		createFn: func(ctx context.Context, room *model.Room) error {
			created = room
			return nil
		},
	}

	svc := NewRoomService(repo, Options{})
	_, err := svc.Create(context.Background(), CreateRoomInput{
		Password:        "hunter2",
		ExpirationType:  model.ExpirationHours,
		ExpirationValue: 1,
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created.SecretHash == "" || created.SecretHash == "hunter2" {
		t.Fatalf("secret must be stored as a hash, got %q", created.SecretHash)
	}
	if !secret.Verify(created.SecretHash, "hunter2") {
		t.Fatal("stored hash should verify against the original password")
	}
}

func TestRoomService_Create_RetriesOnCollision(t *testing.T) {
	var ids []string
	repo := &mockRoomRepository{
		createFn: func(ctx context.Context, room *model.Room) error {
			ids = append(ids, room.ID)
			if len(ids) < 3 {
				return repository.ErrRoomExists
			}
			return nil
		},
	}

	svc := NewRoomService(repo, Options{})
	room, err := svc.Create(context.Background(), CreateRoomInput{
		ExpirationType:  model.ExpirationHours,
		ExpirationValue: 24,
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("create attempts = %d, want 3", len(ids))
	}
	if ids[0] == ids[1] || ids[1] == ids[2] {
		t.Fatal("each retry must use a fresh id")
	}
	if room.ID != ids[2] {
		t.Fatalf("returned id %q, want last attempted %q", room.ID, ids[2])
	}
}

func TestRoomService_Create_RetriesExhausted(t *testing.T) {
	repo := &mockRoomRepository{
		createFn: func(ctx context.Context, room *model.Room) error {
			return repository.ErrRoomExists
		},
	}

	svc := NewRoomService(repo, Options{})
	_, err := svc.Create(context.Background(), CreateRoomInput{})
	if !errors.Is(err, repository.ErrRoomExists) {
		t.Fatalf("expected wrapped ErrRoomExists after exhausted retries, got %v", err)
	}
}

func TestRoomService_Save(t *testing.T) {
	future := time.Now().Add(time.Hour)
	var savedContent, savedLanguage string
	repo := &mockRoomRepository{
		getFn: func(ctx context.Context, id string) (*model.Room, error) {
			return &model.Room{ID: id, ExpiresAt: &future}, nil
		},
		replaceFn: func(ctx context.Context, id, content, language string, now time.Time) error {
			savedContent, savedLanguage = content, language
			return nil
		},
	}

	svc := NewRoomService(repo, Options{})
	err := svc.Save(context.Background(), "abc", "", SaveInput{Content: "hello", Language: "go"})
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if savedContent != "hello" || savedLanguage != "go" {
		t.Fatalf("saved %q/%q, want hello/go", savedContent, savedLanguage)
	}
}

func TestRoomService_Save_NotFound(t *testing.T) {
	svc := NewRoomService(&mockRoomRepository{}, Options{})
	err := svc.Save(context.Background(), "missing", "", SaveInput{Content: "x"})
	if !errors.Is(err, repository.ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestRoomService_Save_PasswordGate(t *testing.T) {
	hash, err := secret.Hash("hunter2")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	replaced := false
	repo := &mockRoomRepository{
		getFn: func(ctx context.Context, id string) (*model.Room, error) {
			return &model.Room{ID: id, SecretHash: hash}, nil
		},
		replaceFn: func(ctx context.Context, id, content, language string, now time.Time) error {
			replaced = true
			return nil
		},
	}
	svc := NewRoomService(repo, Options{})

	if err := svc.Save(context.Background(), "locked", "", SaveInput{Content: "x"}); !errors.Is(err, ErrPasswordRequired) {
		t.Fatalf("expected ErrPasswordRequired, got %v", err)
	}
	if err := svc.Save(context.Background(), "locked", "nope", SaveInput{Content: "x"}); !errors.Is(err, ErrPasswordInvalid) {
		t.Fatalf("expected ErrPasswordInvalid, got %v", err)
	}
	if replaced {
		t.Fatal("denied saves must not reach storage")
	}
	if err := svc.Save(context.Background(), "locked", "hunter2", SaveInput{Content: "x"}); err != nil {
		t.Fatalf("correct credential: %v", err)
	}
	if !replaced {
		t.Fatal("granted save should reach storage")
	}
}

func TestRoomService_Save_VanishedOnWrite(t *testing.T) {
	future := time.Now().Add(time.Hour)
	repo := &mockRoomRepository{
		getFn: func(ctx context.Context, id string) (*model.Room, error) {
			return &model.Room{ID: id, ExpiresAt: &future}, nil
		},
		replaceFn: func(ctx context.Context, id, content, language string, now time.Time) error {
			return repository.ErrRoomNotFound
		},
	}

	svc := NewRoomService(repo, Options{})
	err := svc.Save(context.Background(), "gone", "", SaveInput{Content: "x"})
	if !errors.Is(err, repository.ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound when the row vanished mid-save, got %v", err)
	}
}
