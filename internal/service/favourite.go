package service

import (
	"context"

	"github.com/Shivanand-hulikatti/eventhub/internal/auth"
	"github.com/Shivanand-hulikatti/eventhub/internal/model"
)

type FavouriteStore interface {
	Add(ctx context.Context, userID, eventID string) (*model.Favourite, error)
	List(ctx context.Context, userID string, page model.Page) ([]model.Favourite, int, error)
	Remove(ctx context.Context, userID, eventID string) error
}

// FavouriteService manages a user's bookmarked events.
type FavouriteService struct {
	favourites FavouriteStore
	events     EventStore
}

func NewFavouriteService(favourites FavouriteStore, events EventStore) *FavouriteService {
	return &FavouriteService{favourites: favourites, events: events}
}

func (s *FavouriteService) Add(ctx context.Context, id auth.Identity, req model.FavouriteRequest) (*model.Favourite, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	ev, err := s.events.GetByID(ctx, req.EventID)
	if err != nil {
		return nil, err
	}
	f, err := s.favourites.Add(ctx, id.UserID, ev.ID)
	if err != nil {
		return nil, err
	}
	f.Event = ev
	return f, nil
}

func (s *FavouriteService) List(ctx context.Context, id auth.Identity, page model.Page) (model.List[model.Favourite], error) {
	page = page.Normalize()
	favs, total, err := s.favourites.List(ctx, id.UserID, page)
	if err != nil {
		return model.List[model.Favourite]{}, err
	}
	return model.NewList(page, total, favs), nil
}

func (s *FavouriteService) Remove(ctx context.Context, id auth.Identity, eventID string) error {
	return s.favourites.Remove(ctx, id.UserID, eventID)
}
