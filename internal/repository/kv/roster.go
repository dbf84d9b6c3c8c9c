package kv

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rosterhq/oncall-api/internal/model"
	"github.com/rosterhq/oncall-api/internal/repository"
	apperrors "github.com/rosterhq/oncall-api/pkg/errors"
)

type RosterRepository struct {
	store repository.KVStore
}

func NewRosterRepository(store repository.KVStore) *RosterRepository {
	return &RosterRepository{store: store}
}

func (r *RosterRepository) GetRoster(ctx context.Context) (model.Roster, error) {
	roster := make(model.Roster)

	var cursor uint64
	for {
		keys, next, done, err := r.store.List(ctx, prefixRoster, cursor)
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			dept := strings.TrimPrefix(key, prefixRoster)
			// SCAN may return a key more than once across pages.
			if _, dup := roster[dept]; dup {
				continue
			}
			people, err := r.GetDepartment(ctx, dept)
			if err != nil {
				if apperrors.Is(err, apperrors.ErrNotFound) {
					continue
				}
				return nil, err
			}
			roster[dept] = people
		}
		if done {
			break
		}
		cursor = next
	}

	if len(roster) == 0 {
		return nil, apperrors.NotFound("roster", nil)
	}
	return roster, nil
}

func (r *RosterRepository) GetDepartment(ctx context.Context, dept string) ([]model.Person, error) {
	value, ok, err := r.store.Get(ctx, rosterKey(dept))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NotFound("department roster", nil)
	}
	var people []model.Person
	if err := json.Unmarshal(value, &people); err != nil {
		return nil, apperrors.Store("corrupt roster record", err)
	}
	return people, nil
}

func (r *RosterRepository) PutDepartment(ctx context.Context, dept string, people []model.Person) error {
	value, err := json.Marshal(people)
	if err != nil {
		return apperrors.Store("failed to encode roster", err)
	}
	return r.store.Put(ctx, rosterKey(dept), value)
}

var _ repository.RosterRepository = (*RosterRepository)(nil)
