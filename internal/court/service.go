package court

import (
	"context"
	"strings"
	"time"
)

type CreateRequest struct {
	Name           string
	Surface        string
	OpenTime       string
	CloseTime      string
	SlotMinutes    int
	HourlyRate     float64
	PeakStartHour  int
	PeakEndHour    int
	PeakMultiplier float64
}

type UpdateRequest struct {
	Name           *string
	Surface        *string
	HourlyRate     *float64
	PeakMultiplier *float64
	IsActive       *bool
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Court, error)
	GetByID(ctx context.Context, id string) (*Court, error)
	List(ctx context.Context, filter Filter) ([]*Court, int, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*Court, error)
	Delete(ctx context.Context, id string) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*Court, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, ErrEmptyName
	}
	if req.HourlyRate <= 0 {
		return nil, ErrInvalidRate
	}

	open, err := ParseClock(req.OpenTime)
	if err != nil {
		return nil, ErrInvalidHours
	}
	close_, err := ParseClock(req.CloseTime)
	if err != nil {
		return nil, ErrInvalidHours
	}
	if close_ <= open {
		return nil, ErrInvalidHours
	}

	// The open window must be an exact number of slots, otherwise slot
	// generation would leave an unbookable remainder at closing time.
	if req.SlotMinutes <= 0 {
		return nil, ErrInvalidSlotSize
	}
	slotLen := time.Duration(req.SlotMinutes) * time.Minute
	if (close_-open)%slotLen != 0 {
		return nil, ErrInvalidSlotSize
	}

	if req.PeakStartHour < 0 || req.PeakEndHour > 24 || req.PeakEndHour < req.PeakStartHour {
		return nil, ErrInvalidPeakHours
	}

	multiplier := req.PeakMultiplier
	if multiplier == 0 {
		multiplier = 1
	}

	c := &Court{
		Name:           strings.TrimSpace(req.Name),
		Surface:        req.Surface,
		OpenTime:       req.OpenTime,
		CloseTime:      req.CloseTime,
		SlotMinutes:    req.SlotMinutes,
		HourlyRate:     req.HourlyRate,
		PeakStartHour:  req.PeakStartHour,
		PeakEndHour:    req.PeakEndHour,
		PeakMultiplier: multiplier,
		IsActive:       true,
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*Court, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Court, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *service) Update(ctx context.Context, id string, req UpdateRequest) (*Court, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, ErrEmptyName
		}
		c.Name = strings.TrimSpace(*req.Name)
	}
	if req.Surface != nil {
		c.Surface = *req.Surface
	}
	if req.HourlyRate != nil {
		if *req.HourlyRate <= 0 {
			return nil, ErrInvalidRate
		}
		c.HourlyRate = *req.HourlyRate
	}
	if req.PeakMultiplier != nil {
		c.PeakMultiplier = *req.PeakMultiplier
	}
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
