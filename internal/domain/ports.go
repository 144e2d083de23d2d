package domain

import "context"

// Repository is the CRUD surface every entity collection exposes.
type Repository[T any] interface {
	GetAll(ctx context.Context) ([]T, error)
	GetByID(ctx context.Context, id string) (*T, error)
	Create(ctx context.Context, value *T) error
	Update(ctx context.Context, id string, merge func(*T) error) (*T, error)
	Delete(ctx context.Context, id string) error
}

// Models lists every persisted model, for migrations.
func Models() []interface{} {
	return []interface{}{
		&Contract{}, &Shipment{}, &Tank{}, &Party{}, &RoutingEvent{}, &Sequence{},
	}
}

// Contains reports whether v is one of values.
func Contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
