package memstore

import (
	"context"
	"time"

	"tunechat/internal/domain/entity"
	"tunechat/pkg/errors"
)

// Groups adapts the store to repository.GroupRepository.
type Groups struct {
	s *Store
}

func (s *Store) Groups() *Groups {
	return &Groups{s: s}
}

func (g *Groups) GetOrCreate(_ context.Context, id string, defaults entity.Group) (*entity.Group, error) {
	g.s.mu.Lock()
	defer g.s.mu.Unlock()

	if existing, ok := g.s.groups[id]; ok {
		return cloneGroup(existing), nil
	}

	group := cloneGroup(&defaults)
	group.ID = id
	now := time.Now()
	group.CreatedAt = now
	group.UpdatedAt = now
	if err := g.s.write(func() { g.s.groups[id] = group }); err != nil {
		return nil, err
	}
	return cloneGroup(group), nil
}

func (g *Groups) Update(_ context.Context, id string, fields map[string]interface{}) error {
	g.s.mu.Lock()
	defer g.s.mu.Unlock()

	group, ok := g.s.groups[id]
	if !ok {
		return errors.NotFound("Group", nil)
	}
	return g.s.write(func() {
		for key, value := range fields {
			switch key {
			case "name":
				group.Name, _ = value.(string)
			case "photo":
				group.Photo, _ = value.(string)
			case "description":
				group.Description, _ = value.(string)
			}
		}
		group.UpdatedAt = time.Now()
	})
}

func (g *Groups) AddToSet(_ context.Context, id, field string, values ...string) error {
	return g.mutateSet(id, field, func(set []string) []string {
		for _, v := range values {
			if !contains(set, v) {
				set = append(set, v)
			}
		}
		return set
	})
}

func (g *Groups) RemoveFromSet(_ context.Context, id, field string, values ...string) error {
	return g.mutateSet(id, field, func(set []string) []string {
		out := set[:0:0]
		for _, v := range set {
			if !contains(values, v) {
				out = append(out, v)
			}
		}
		return out
	})
}

func (g *Groups) mutateSet(id, field string, fn func([]string) []string) error {
	g.s.mu.Lock()
	defer g.s.mu.Unlock()

	group, ok := g.s.groups[id]
	if !ok {
		return errors.NotFound("Group", nil)
	}
	var target *[]string
	switch field {
	case "members":
		target = &group.Members
	case "admins":
		target = &group.Admins
	default:
		return errors.BadRequest("Unsupported set field "+field, nil)
	}
	return g.s.write(func() {
		*target = fn(*target)
		group.UpdatedAt = time.Now()
	})
}

func cloneGroup(g *entity.Group) *entity.Group {
	out := *g
	out.Members = append([]string{}, g.Members...)
	out.Admins = append([]string{}, g.Admins...)
	return &out
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
