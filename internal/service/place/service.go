package place

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"log/slog"

	"github.com/nisHanRam/Placify-Backend/internal/apperr"
	"github.com/nisHanRam/Placify-Backend/internal/domain"
	"github.com/nisHanRam/Placify-Backend/internal/repository"
	"github.com/nisHanRam/Placify-Backend/pkg/config"
)

const (
	minDescriptionLength = 5
	compensationTimeout  = 5 * time.Second
)

// Client-facing messages.
const (
	msgInvalidInput     = "Please provide valid inputs."
	msgSomethingWrong   = "Something went wrong."
	msgPlaceNotFound    = "Could not find the place."
	msgUserPlacesAbsent = "Could not find a place for the user."
	msgUserNotFound     = "This user does not exist."
	msgCreateLookup     = "Creating place failed, please try again."
	msgCreateFailed     = "Creating place failed."
	msgUpdateFailed     = "Updating place failed."
	msgDeleteNotFound   = "The place to be deleted does not exist."
	msgDeleteFailed     = "Deleting place failed."
	msgForbidden        = "You are not allowed to modify this place."
)

// Notifier receives serialized place events for a user.
type Notifier interface {
	Broadcast(userID string, payload []byte)
}

// CreateInput carries the attributes of a new place.
type CreateInput struct {
	Title       string
	Description string
	Address     string
	CreatorID   string
	Image       string
}

// UpdateInput carries the mutable attributes of a place.
type UpdateInput struct {
	Title       string
	Description string
}

// Service coordinates place writes with the owning user's place list.
type Service struct {
	store    repository.Store
	notifier Notifier
	logger   *slog.Logger
	cfg      config.APIConfig
}

// New returns a place service. notifier may be nil.
func New(store repository.Store, notifier Notifier, logger *slog.Logger, cfg config.APIConfig) Service {
	return Service{store: store, notifier: notifier, logger: logger, cfg: cfg}
}

var (
	errCreatorMissing = errors.New("creator vanished during write")
	errPlaceMissing   = errors.New("place vanished during write")
	errNoIsolation    = errors.New("store supports neither transactions nor user locks")
)

func (in CreateInput) validate() error {
	if strings.TrimSpace(in.Title) == "" ||
		utf8.RuneCountInString(strings.TrimSpace(in.Description)) < minDescriptionLength ||
		strings.TrimSpace(in.Address) == "" ||
		strings.TrimSpace(in.CreatorID) == "" {
		return apperr.Validation(msgInvalidInput)
	}
	return nil
}

func (in UpdateInput) validate() error {
	if strings.TrimSpace(in.Title) == "" ||
		utf8.RuneCountInString(strings.TrimSpace(in.Description)) < minDescriptionLength {
		return apperr.Validation(msgInvalidInput)
	}
	return nil
}

// Get returns a place by id.
func (s Service) Get(ctx context.Context, placeID string) (*domain.Place, error) {
	place, err := s.store.GetPlaceByID(ctx, placeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound(msgPlaceNotFound)
		}
		return nil, apperr.Internal(msgSomethingWrong, err)
	}
	return place, nil
}

// ListByUser returns the places created by userID. An empty result is
// reported as not found.
func (s Service) ListByUser(ctx context.Context, userID string) ([]domain.Place, error) {
	places, err := s.store.ListPlacesByCreator(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(msgSomethingWrong, err)
	}
	if len(places) == 0 {
		return nil, apperr.NotFound(msgUserPlacesAbsent)
	}
	return places, nil
}

// Create stores a place and links it to its creator. A non-empty actorID is
// the authenticated caller, who must be the creator.
func (s Service) Create(ctx context.Context, actorID string, in CreateInput) (*domain.Place, error) {
	if actorID != "" {
		if strings.TrimSpace(in.CreatorID) == "" {
			in.CreatorID = actorID
		} else if in.CreatorID != actorID {
			return nil, apperr.Forbidden(msgForbidden)
		}
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	if _, err := s.store.GetUserByID(ctx, in.CreatorID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound(msgUserNotFound)
		}
		return nil, apperr.Internal(msgCreateLookup, err)
	}

	image := strings.TrimSpace(in.Image)
	if image == "" {
		image = s.cfg.DefaultPlaceImage
	}
	place := &domain.Place{
		Title:       in.Title,
		Description: in.Description,
		Address:     in.Address,
		Image:       image,
		CreatorID:   in.CreatorID,
		CreatedAt:   time.Now().UTC(),
	}

	err := s.withinUser(ctx, in.CreatorID, func(store repository.Store, compensate bool) error {
		owner, err := store.GetUserForUpdate(ctx, in.CreatorID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return errCreatorMissing
			}
			return err
		}
		if err := store.CreatePlace(ctx, place); err != nil {
			return err
		}
		owner.AddPlace(place.ID)
		if err := store.UpdateUser(ctx, owner); err != nil {
			if compensate {
				s.undoCreate(place)
			}
			return err
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errCreatorMissing) {
			return nil, apperr.NotFound(msgUserNotFound)
		}
		s.logger.Error("create place failed", "user_id", in.CreatorID, "error", err)
		return nil, apperr.Internal(msgCreateFailed, err)
	}

	s.logger.Info("place created", "place_id", place.ID, "user_id", place.CreatorID)
	s.publish(domain.PlaceCreated, *place)
	return place, nil
}

// Update overwrites the title and description of a place.
func (s Service) Update(ctx context.Context, placeID, actorID string, in UpdateInput) (*domain.Place, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	place, err := s.store.GetPlaceByID(ctx, placeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound(msgPlaceNotFound)
		}
		return nil, apperr.Internal(msgUpdateFailed, err)
	}
	if actorID != "" && place.CreatorID != actorID {
		return nil, apperr.Forbidden(msgForbidden)
	}

	place.Title = in.Title
	place.Description = in.Description
	if err := s.store.UpdatePlace(ctx, place); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound(msgPlaceNotFound)
		}
		return nil, apperr.Internal(msgUpdateFailed, err)
	}

	s.logger.Info("place updated", "place_id", place.ID, "user_id", place.CreatorID)
	s.publish(domain.PlaceUpdated, *place)
	return place, nil
}

// Delete removes a place and unlinks it from its creator.
func (s Service) Delete(ctx context.Context, placeID, actorID string) error {
	place, err := s.store.GetPlaceByID(ctx, placeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound(msgDeleteNotFound)
		}
		return apperr.Internal(msgDeleteFailed, err)
	}
	if actorID != "" && place.CreatorID != actorID {
		return apperr.Forbidden(msgForbidden)
	}

	var deleted *domain.Place
	err = s.withinUser(ctx, place.CreatorID, func(store repository.Store, compensate bool) error {
		current, err := store.GetPlaceByID(ctx, placeID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return errPlaceMissing
			}
			return err
		}
		owner, err := store.GetUserForUpdate(ctx, current.CreatorID)
		if err != nil {
			return err
		}
		if err := store.DeletePlace(ctx, current.ID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return errPlaceMissing
			}
			return err
		}
		owner.RemovePlace(current.ID)
		if err := store.UpdateUser(ctx, owner); err != nil {
			if compensate {
				s.undoDelete(current)
			}
			return err
		}
		deleted = current
		return nil
	})
	if err != nil {
		if errors.Is(err, errPlaceMissing) {
			return apperr.NotFound(msgDeleteNotFound)
		}
		s.logger.Error("delete place failed", "place_id", placeID, "error", err)
		return apperr.Internal(msgDeleteFailed, err)
	}

	s.logger.Info("place deleted", "place_id", deleted.ID, "user_id", deleted.CreatorID)
	s.publish(domain.PlaceDeleted, *deleted)
	return nil
}

// withinUser runs fn as one unit of work for userID. Transactional stores
// roll fn's writes back on error; other stores hold the user's lock and fn is
// told to compensate its own writes.
func (s Service) withinUser(ctx context.Context, userID string, fn func(store repository.Store, compensate bool) error) error {
	if tx, ok := s.store.(repository.Transactor); ok {
		return tx.WithinTx(ctx, func(store repository.Store) error {
			return fn(store, false)
		})
	}
	locker, ok := s.store.(repository.UserLocker)
	if !ok {
		return errNoIsolation
	}
	unlock := locker.LockUser(userID)
	defer unlock()
	return fn(s.store, true)
}

// undoCreate and undoDelete run detached from the request deadline.
func (s Service) undoCreate(place *domain.Place) {
	ctx, cancel := context.WithTimeout(context.Background(), compensationTimeout)
	defer cancel()
	if err := s.store.DeletePlace(ctx, place.ID); err != nil {
		s.logger.Error("compensating place delete failed", "place_id", place.ID, "user_id", place.CreatorID, "error", err)
		return
	}
	s.logger.Warn("place creation rolled back", "place_id", place.ID, "user_id", place.CreatorID)
}

func (s Service) undoDelete(place *domain.Place) {
	ctx, cancel := context.WithTimeout(context.Background(), compensationTimeout)
	defer cancel()
	restore := s.store.CreatePlace
	if r, ok := s.store.(repository.PlaceRestorer); ok {
		restore = r.RestorePlace
	}
	if err := restore(ctx, place); err != nil {
		s.logger.Error("compensating place restore failed", "place_id", place.ID, "user_id", place.CreatorID, "error", err)
		return
	}
	s.logger.Warn("place deletion rolled back", "place_id", place.ID, "user_id", place.CreatorID)
}

func (s Service) publish(eventType string, place domain.Place) {
	if s.notifier == nil {
		return
	}
	payload, err := MarshalEvent(domain.PlaceEvent{Type: eventType, Place: place, OccurredAt: time.Now().UTC()})
	if err != nil {
		s.logger.Warn("failed to marshal place event", "error", err)
		return
	}
	s.notifier.Broadcast(place.CreatorID, payload)
}
