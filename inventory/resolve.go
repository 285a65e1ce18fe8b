package inventory

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// resolve maps an identifier token to an entry index. A token that parses as
// an integer is only ever looked up by ID, even when a record carries that
// text as its name.
func (t *table) resolve(token string) (int, error) {
	tok := strings.TrimSpace(token)
	if tok == "" {
		return -1, fmt.Errorf("%w: identifier is required", ErrInvalidArgument)
	}
	if id, err := strconv.Atoi(tok); err == nil {
		if i, ok := t.byID(id); ok {
			return i, nil
		}
		return -1, &NotFoundError{Token: tok}
	}
	if i, ok := t.byName(tok); ok {
		return i, nil
	}
	return -1, &NotFoundError{Token: tok}
}

// Resolve finds the record named by token: numeric tokens by ID, anything
// else by exact name.
func (s *Store) Resolve(ctx context.Context, token string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.load(ctx)
	if err != nil {
		return Record{}, err
	}
	i, err := t.resolve(token)
	if err != nil {
		return Record{}, err
	}
	return t.entries[i].rec, nil
}

// DeleteByToken resolves token and deletes the record in one critical
// section.
func (s *Store) DeleteByToken(ctx context.Context, token string) (Record, error) {
	ctx, span := s.tracer.Start(ctx, "Store.DeleteByToken")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.load(ctx)
	if err != nil {
		return Record{}, spanError(span, err)
	}
	i, err := t.resolve(token)
	if err != nil {
		return Record{}, spanError(span, err)
	}
	rec, err := s.remove(ctx, t, i)
	return rec, spanError(span, err)
}

// UpdateByToken resolves token and applies c in one critical section.
func (s *Store) UpdateByToken(ctx context.Context, token string, c Changes) (Record, error) {
	ctx, span := s.tracer.Start(ctx, "Store.UpdateByToken")
	defer span.End()

	if err := c.validate(); err != nil {
		return Record{}, spanError(span, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.load(ctx)
	if err != nil {
		return Record{}, spanError(span, err)
	}
	i, err := t.resolve(token)
	if err != nil {
		return Record{}, spanError(span, err)
	}
	rec, err := s.apply(ctx, t, i, c)
	return rec, spanError(span, err)
}
