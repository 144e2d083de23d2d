package store

import (
	"context"
	"errors"

	"tradedesk-backend/internal/domain"
	"tradedesk-backend/internal/events"

	"gorm.io/gorm"
)

// Repository is the gorm-backed CRUD accessor for one collection.
// Every committed mutation emits exactly one CollectionChanged event.
type Repository[T any] struct {
	store      *Store
	collection string
	entity     string
}

var (
	_ domain.Repository[domain.Contract] = (*Repository[domain.Contract])(nil)
	_ domain.Repository[domain.Shipment] = (*Repository[domain.Shipment])(nil)
	_ domain.Repository[domain.Tank]     = (*Repository[domain.Tank])(nil)
	_ domain.Repository[domain.Party]    = (*Repository[domain.Party])(nil)
)

func newRepository[T any](s *Store, collection, entity string) *Repository[T] {
	return &Repository[T]{store: s, collection: collection, entity: entity}
}

func (r *Repository[T]) db(ctx context.Context) *gorm.DB {
	return r.store.db.WithContext(ctx)
}

func (r *Repository[T]) changed(ctx context.Context) {
	r.store.Emit(ctx, events.CollectionChangedEvent(r.collection))
}

func (r *Repository[T]) GetAll(ctx context.Context) ([]T, error) {
	var out []T
	if err := r.db(ctx).Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository[T]) GetByID(ctx context.Context, id string) (*T, error) {
	var v T
	if err := r.db(ctx).Where("id = ?", id).First(&v).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &domain.NotFoundError{Entity: r.entity, ID: id}
		}
		return nil, err
	}
	return &v, nil
}

// Exists reports whether a record with id is present.
func (r *Repository[T]) Exists(ctx context.Context, id string) (bool, error) {
	var n int64
	if err := r.db(ctx).Model(new(T)).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// Find returns the records matching a gorm Where condition, ordered by id.
func (r *Repository[T]) Find(ctx context.Context, query interface{}, args ...interface{}) ([]T, error) {
	var out []T
	if err := r.db(ctx).Where(query, args...).Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the number of records matching a gorm Where condition.
func (r *Repository[T]) Count(ctx context.Context, query interface{}, args ...interface{}) (int64, error) {
	var n int64
	if err := r.db(ctx).Model(new(T)).Where(query, args...).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// CountAll returns the size of the collection.
func (r *Repository[T]) CountAll(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db(ctx).Model(new(T)).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// Create inserts value; gorm stamps createdAt/updatedAt.
func (r *Repository[T]) Create(ctx context.Context, value *T) error {
	if err := r.db(ctx).Create(value).Error; err != nil {
		return err
	}
	r.changed(ctx)
	return nil
}

// Update reads the record, lets merge modify it in memory and writes it back.
func (r *Repository[T]) Update(ctx context.Context, id string, merge func(*T) error) (*T, error) {
	v, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := merge(v); err != nil {
		return nil, err
	}
	if err := r.Save(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// Save writes every column of value.
func (r *Repository[T]) Save(ctx context.Context, value *T) error {
	if err := r.db(ctx).Save(value).Error; err != nil {
		return err
	}
	r.changed(ctx)
	return nil
}

func (r *Repository[T]) Delete(ctx context.Context, id string) error {
	res := r.db(ctx).Where("id = ?", id).Delete(new(T))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &domain.NotFoundError{Entity: r.entity, ID: id}
	}
	r.changed(ctx)
	return nil
}

// DeleteWhere removes every matching record and emits one notification if any were removed.
func (r *Repository[T]) DeleteWhere(ctx context.Context, query interface{}, args ...interface{}) (int64, error) {
	res := r.db(ctx).Where(query, args...).Delete(new(T))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		r.changed(ctx)
	}
	return res.RowsAffected, nil
}
