package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/secdrive/internal/common"
	"github.com/dmitrijs2005/secdrive/internal/logging"
	"github.com/dmitrijs2005/secdrive/internal/server/config"
	"github.com/dmitrijs2005/secdrive/internal/server/models"
	"github.com/dmitrijs2005/secdrive/internal/server/objects"
	"github.com/dmitrijs2005/secdrive/internal/server/repositories/repomanager"
)

type RegisterRequest struct {
	UserID    string
	Email     string
	FirstName string
	LastName  string
}

// UserService manages user profiles.
type UserService struct {
	repomanager  repomanager.RepositoryManager
	storeTimeout time.Duration
	log          logging.Logger

	now func() time.Time
}

func NewUserService(m repomanager.RepositoryManager, cfg *config.Config, log logging.Logger) *UserService {
	return &UserService{
		repomanager:  m,
		storeTimeout: cfg.StoreTimeout,
		log:          log.With("module", "users"),
		now:          time.Now,
	}
}

func validEmail(email string) bool {
	return strings.Contains(email, "@")
}

// Register creates the profile for a new user.
func (s *UserService) Register(ctx context.Context, req RegisterRequest) error {
	var missing []string
	if req.UserID == "" {
		missing = append(missing, "user_id")
	}
	if req.Email == "" {
		missing = append(missing, "email")
	}
	if req.FirstName == "" {
		missing = append(missing, "firstName")
	}
	if req.LastName == "" {
		missing = append(missing, "lastName")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required fields: %s", common.ErrValidation, strings.Join(missing, ", "))
	}
	if !validEmail(req.Email) {
		return fmt.Errorf("%w: invalid email", common.ErrValidation)
	}
	if err := objects.ValidateUserID(req.UserID); err != nil {
		return err
	}

	now := s.now().UTC()
	u := &models.UserProfile{
		UserID:    req.UserID,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		CreatedAt: now,
		UpdatedAt: now,
	}

	ctx, cancel := withTimeout(ctx, s.storeTimeout)
	defer cancel()
	if err := s.repomanager.Users().Create(ctx, u); err != nil {
		return err
	}

	s.log.Info(ctx, "user registered", "user_id", req.UserID)
	return nil
}

// UpdateProfile applies a partial update limited to email, first and last name.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, upd models.ProfileUpdate) error {
	if userID == "" {
		return fmt.Errorf("%w: user_id is required", common.ErrValidation)
	}
	if upd.Empty() {
		return fmt.Errorf("%w: no fields to update", common.ErrValidation)
	}
	if upd.Email != nil && !validEmail(*upd.Email) {
		return fmt.Errorf("%w: invalid email", common.ErrValidation)
	}
	if (upd.FirstName != nil && *upd.FirstName == "") || (upd.LastName != nil && *upd.LastName == "") {
		return fmt.Errorf("%w: names must not be empty", common.ErrValidation)
	}

	ctx, cancel := withTimeout(ctx, s.storeTimeout)
	defer cancel()
	if err := s.repomanager.Users().Update(ctx, userID, upd); err != nil {
		return err
	}

	s.log.Info(ctx, "profile updated", "user_id", userID)
	return nil
}

func (s *UserService) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", common.ErrValidation)
	}

	ctx, cancel := withTimeout(ctx, s.storeTimeout)
	defer cancel()
	return s.repomanager.Users().Get(ctx, userID)
}
