package media

import (
	"context"

	"gorm.io/gorm"

	domain "mediavault/internal/domain/media"
	"mediavault/internal/infrastructure/database/entities"
	"mediavault/internal/utils/platformerrors"
)

// Repository handles media record persistence on PostgreSQL.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, record *domain.MediaRecord) error {
	entity := entities.MediaRecord{
		ID:         record.ID,
		Title:      record.Title,
		StorageKey: record.StorageKey,
		OwnerID:    record.OwnerID,
		Status:     string(record.Status),
		Progress:   record.Progress,
		MimeType:   record.MimeType,
		Bytes:      record.Bytes,
		Sha256:     record.Sha256,
	}
	err := r.db.WithContext(ctx).Create(&entity).Error
	if err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to create media record",
			err,
			"9b2e4f5a-6c7d-4e8f-9a0b-1c2d3e4f5a6b",
		)
	}
	record.CreatedAt = entity.CreatedAt
	record.UpdatedAt = entity.UpdatedAt
	return nil
}

func (r *Repository) Get(ctx context.Context, id string) (*domain.MediaRecord, error) {
	var entity entities.MediaRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, platformerrors.NewError(
				ctx,
				platformerrors.LayerRepository,
				platformerrors.ErrorTypeNotFound,
				"media record not found",
				err,
				"1c2d3e4f-5a6b-4c7d-8e9f-0a1b2c3d4e5f",
			)
		}
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to get media by id",
			err,
			"2d3e4f5a-6b7c-4d8e-9f0a-1b2c3d4e5f6a",
		)
	}
	record := mapEntity(entity)
	return &record, nil
}

func (r *Repository) Update(ctx context.Context, id string, fields domain.UpdateFields) (*domain.MediaRecord, error) {
	updates := updateMap(fields)
	if len(updates) == 0 {
		return r.Get(ctx, id)
	}

	result := r.db.WithContext(ctx).Model(&entities.MediaRecord{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to update media record",
			result.Error,
			"3e4f5a6b-7c8d-4e9f-0a1b-2c3d4e5f6a7b",
		)
	}
	if result.RowsAffected == 0 {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeNotFound,
			"media record not found",
			nil,
			"4f5a6b7c-8d9e-4f0a-1b2c-3d4e5f6a7b8c",
		)
	}

	return r.Get(ctx, id)
}

// UpdateIfStatus performs a guarded update: the row is touched only while it
// still carries the expected status, so the terminal transition is atomic
// against concurrent writers.
func (r *Repository) UpdateIfStatus(ctx context.Context, id string, current domain.Status, fields domain.UpdateFields) (*domain.MediaRecord, error) {
	updates := updateMap(fields)
	if len(updates) == 0 {
		return r.Get(ctx, id)
	}

	result := r.db.WithContext(ctx).Model(&entities.MediaRecord{}).
		Where("id = ? AND status = ?", id, string(current)).
		Updates(updates)
	if result.Error != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to update media record",
			result.Error,
			"5a6b7c8d-9e0f-4a1b-2c3d-4e5f6a7b8c9d",
		)
	}
	if result.RowsAffected == 0 {
		// Distinguish a deleted row from a concurrent status change.
		if _, err := r.Get(ctx, id); err != nil {
			return nil, err
		}
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeConflict,
			"media record status changed concurrently",
			nil,
			"6b7c8d9e-0f1a-4b2c-3d4e-5f6a7b8c9d0e",
		)
	}

	return r.Get(ctx, id)
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entities.MediaRecord{})
	if result.Error != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to delete media record",
			result.Error,
			"7c8d9e0f-1a2b-4c3d-4e5f-6a7b8c9d0e1f",
		)
	}
	if result.RowsAffected == 0 {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeNotFound,
			"media record not found",
			nil,
			"8d9e0f1a-2b3c-4d4e-5f6a-7b8c9d0e1f2a",
		)
	}
	return nil
}

func (r *Repository) List(ctx context.Context, filter domain.Filter) ([]*domain.MediaRecord, error) {
	query := r.db.WithContext(ctx).Model(&entities.MediaRecord{})
	if filter.OwnerID != "" {
		query = query.Where("owner_id = ?", filter.OwnerID)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		query = query.Where("status IN ?", statuses)
	}

	var rows []entities.MediaRecord
	if err := query.Order("created_at DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to list media records",
			err,
			"9e0f1a2b-3c4d-4e5f-6a7b-8c9d0e1f2a3b",
		)
	}

	records := make([]*domain.MediaRecord, len(rows))
	for i, row := range rows {
		record := mapEntity(row)
		records[i] = &record
	}
	return records, nil
}

func updateMap(fields domain.UpdateFields) map[string]interface{} {
	updates := make(map[string]interface{})
	if fields.Title != nil {
		updates["title"] = *fields.Title
	}
	if fields.Status != nil {
		updates["status"] = string(*fields.Status)
		if fields.Status.Terminal() && fields.Progress == nil {
			updates["progress"] = 100
		}
	}
	if fields.Progress != nil {
		updates["progress"] = *fields.Progress
	}
	return updates
}

func mapEntity(entity entities.MediaRecord) domain.MediaRecord {
	return domain.MediaRecord{
		ID:         entity.ID,
		Title:      entity.Title,
		StorageKey: entity.StorageKey,
		OwnerID:    entity.OwnerID,
		Status:     domain.Status(entity.Status),
		Progress:   entity.Progress,
		MimeType:   entity.MimeType,
		Bytes:      entity.Bytes,
		Sha256:     entity.Sha256,
		CreatedAt:  entity.CreatedAt,
		UpdatedAt:  entity.UpdatedAt,
	}
}
