package transaction

import (
	"context"

	"github.com/google/uuid"
)

// Service serves read-side history queries.
type Service struct {
	machine *Machine
}

func NewService(machine *Machine) *Service {
	return &Service{machine: machine}
}

// History returns a filtered page of the user's transactions.
func (s *Service) History(ctx context.Context, userID uuid.UUID, f Filter) ([]Response, int, Filter, error) {
	f.normalize()
	items, total, err := s.machine.ListByUser(ctx, userID, f)
	if err != nil {
		return nil, 0, f, err
	}

	out := make([]Response, 0, len(items))
	for i := range items {
		out = append(out, ResponseFromEntity(&items[i]))
	}
	return out, total, f, nil
}

// GetForUser returns one of the user's transactions by reference. Other users'
// references are reported as not found.
func (s *Service) GetForUser(ctx context.Context, userID uuid.UUID, reference string) (*Response, error) {
	t, err := s.machine.GetByReference(ctx, s.machine.DB(), reference)
	if err != nil {
		return nil, err
	}
	if t.UserID != userID {
		return nil, ErrTransactionNotFound
	}
	r := ResponseFromEntity(t)
	return &r, nil
}
