package handler

import (
	"context"
	"errors"
	"time"

	"github.com/Ayesha-Taranum/SourceVoid/internal/app/model"
	"github.com/Ayesha-Taranum/SourceVoid/internal/app/repository"
	"github.com/Ayesha-Taranum/SourceVoid/internal/app/service"
	infraPrometheus "github.com/Ayesha-Taranum/SourceVoid/internal/infra/prometheus"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PasswordHeader carries the room credential on reads and writes.
const PasswordHeader = "x-room-password"

// RoomDeps groups dependencies required by room handlers.
type RoomDeps struct {
	Logger       *zap.Logger
	Rooms        service.RoomService
	Views        *service.ViewPublisher
	Postgres     *pgxpool.Pool
	CountMetrics bool
}

// RoomHandler implements the room read/write/create endpoints.
type RoomHandler struct {
	logger       *zap.Logger
	rooms        service.RoomService
	views        *service.ViewPublisher
	pool         *pgxpool.Pool
	countMetrics bool
}

// NewRoomHandler creates a room handler with the provided dependencies.
func NewRoomHandler(deps RoomDeps) *RoomHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoomHandler{
		logger:       logger,
		rooms:        deps.Rooms,
		views:        deps.Views,
		pool:         deps.Postgres,
		countMetrics: deps.CountMetrics,
	}
}

// Register wires room routes onto the provided router.
func (h *RoomHandler) Register(router fiber.Router) {
	router.Get("/", h.Health)
	router.Get("/health", h.Health)

	rooms := router.Group("/rooms")
	{
		rooms.Post("/", h.CreateRoom)
		rooms.Get("/:id", h.OpenRoom)
		rooms.Post("/:id", h.SaveRoom)
	}
}

// Health reports service status, including storage reachability.
func (h *RoomHandler) Health(c *fiber.Ctx) error {
	status := "ok"
	if h.pool != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := h.pool.Ping(ctx); err != nil {
			status = "degraded"
		}
	}
	return c.JSON(fiber.Map{
		"service": "sourcevoid",
		"status":  status,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// RoomResponse is the JSON shape of a granted read.
type RoomResponse struct {
	ID           string     `json:"id"`
	Content      string     `json:"content"`
	Language     string     `json:"language"`
	CreatedAt    time.Time  `json:"created_at"`
	ExpiresAt    *time.Time `json:"expires_at"`
	CurrentViews int        `json:"current_views"`
	MaxViews     int        `json:"max_views"`
}

func roomResponse(room *model.Room) RoomResponse {
	return RoomResponse{
		ID:           room.ID,
		Content:      room.Content,
		Language:     room.Language,
		CreatedAt:    room.CreatedAt,
		ExpiresAt:    room.ExpiresAt,
		CurrentViews: room.CurrentViews,
		MaxViews:     room.MaxViews,
	}
}

// OpenRoom handles GET /rooms/:id
func (h *RoomHandler) OpenRoom(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Room ID is required",
		})
	}

	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}

	room, err := h.rooms.Open(ctx, id, c.Get(PasswordHeader))
	if err != nil {
		return h.denyOpen(c, id, err)
	}

	h.countOpen(infraPrometheus.OutcomeServed)
	if h.views != nil {
		go h.publishView(room.ID, c.IP(), c.Get("User-Agent"))
	}

	return c.JSON(roomResponse(room))
}

// denyOpen maps a failed open to its terminal status. Protected-room
// denials include the protected flag so clients can prompt for a
// password instead of showing a generic error.
func (h *RoomHandler) denyOpen(c *fiber.Ctx, id string, err error) error {
	switch {
	case errors.Is(err, service.ErrPasswordRequired):
		h.countOpen(infraPrometheus.OutcomeLocked)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"protected": true})
	case errors.Is(err, service.ErrPasswordInvalid):
		h.countOpen(infraPrometheus.OutcomeLocked)
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"protected": true})
	case errors.Is(err, service.ErrRoomExpired):
		h.countOpen(infraPrometheus.OutcomeExpired)
		return c.Status(fiber.StatusGone).JSON(fiber.Map{"message": "Room has expired"})
	default:
		h.countOpen(infraPrometheus.OutcomeError)
		h.logger.Error("failed to open room", zap.Error(err), zap.String("id", id))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Internal server error",
		})
	}
}

// SaveRoomRequest represents the request body for saving room content.
type SaveRoomRequest struct {
	Content  string `json:"content"`
	Language string `json:"language,omitempty"`
}

// SaveRoom handles POST /rooms/:id
func (h *RoomHandler) SaveRoom(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Room ID is required",
		})
	}

	var req SaveRoomRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "invalid request body",
		})
	}

	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}

	err := h.rooms.Save(ctx, id, c.Get(PasswordHeader), service.SaveInput{
		Content:  req.Content,
		Language: req.Language,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPasswordRequired):
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"protected": true})
		case errors.Is(err, service.ErrPasswordInvalid):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"protected": true})
		case errors.Is(err, repository.ErrRoomNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": "Room not found or expired",
			})
		default:
			h.logger.Error("failed to save room", zap.Error(err), zap.String("id", id))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "Internal server error",
			})
		}
	}

	if h.countMetrics {
		infraPrometheus.RoomSaves.Inc()
	}
	return c.JSON(fiber.Map{"message": "Updated"})
}

// CreateRoomRequest represents the request body for creating a room.
type CreateRoomRequest struct {
	Password        string `json:"password,omitempty"`
	ExpirationType  string `json:"expirationType,omitempty"`
	ExpirationValue int    `json:"expirationValue,omitempty"`
	Language        string `json:"language,omitempty"`
}

// CreateRoom handles POST /rooms
func (h *RoomHandler) CreateRoom(c *fiber.Ctx) error {
	var req CreateRoomRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "invalid request body",
		})
	}

	if req.ExpirationType != "" &&
		req.ExpirationType != model.ExpirationHours &&
		req.ExpirationType != model.ExpirationMinutes &&
		req.ExpirationType != model.ExpirationViews {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "expirationType must be one of: hours, minutes, views",
		})
	}

	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}

	room, err := h.rooms.Create(ctx, service.CreateRoomInput{
		Password:        req.Password,
		ExpirationType:  req.ExpirationType,
		ExpirationValue: req.ExpirationValue,
		Language:        req.Language,
	})
	if err != nil {
		h.logger.Error("failed to create room", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Internal server error",
		})
	}

	if h.countMetrics {
		infraPrometheus.RoomCreates.Inc()
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": room.ID})
}

func (h *RoomHandler) countOpen(outcome string) {
	if h.countMetrics {
		infraPrometheus.RoomOpens.WithLabelValues(outcome).Inc()
	}
}

func (h *RoomHandler) publishView(roomID, ip, userAgent string) {
	if err := h.views.Publish(roomID, ip, userAgent); err != nil {
		h.logger.Error("failed to publish view event", zap.Error(err), zap.String("room_id", roomID))
	}
}
