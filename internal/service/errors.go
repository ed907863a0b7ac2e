package service

import (
	"errors"

	"pad-sync-server/internal/domain"
	"pad-sync-server/internal/repository"
	"pad-sync-server/pkg/roomkey"
)

var ErrKeyGeneration = errors.New("failed to generate a free room key")

// normalizeKey upper-cases key and rejects anything that is not a room key,
// before any repository is touched.
func normalizeKey(key string) (string, error) {
	key = roomkey.Normalize(key)
	if err := domain.ValidateRoomKey(key); err != nil {
		return "", err
	}
	return key, nil
}

func mapRoomError(key string, err error) error {
	switch {
	case errors.Is(err, repository.ErrRoomNotFound):
		return domain.RoomNotFound(key)
	case errors.Is(err, repository.ErrRoomExists):
		return domain.ErrRoomExists
	}
	return err
}

func mapItemError(id string, err error) error {
	if errors.Is(err, repository.ErrItemNotFound) {
		return domain.ItemNotFound(id)
	}
	return err
}
