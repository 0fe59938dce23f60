package repository

import (
	"context"
	"encoding/json"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/deedledger/deedledger/internal/domain"
	"github.com/deedledger/deedledger/internal/infra/database"
	"github.com/deedledger/deedledger/internal/infra/database/models"
)

type PropertyRepository struct {
	db *gorm.DB
	mc *memcache.Client
}

func NewPropertyRepository(db *gorm.DB, mc *memcache.Client) *PropertyRepository {
	return &PropertyRepository{db: db, mc: mc}
}

func (r *PropertyRepository) Create(ctx context.Context, property domain.Property) error {
	record := models.Property{
		Address:       property.Address,
		Location:      property.Location,
		Value:         property.Value,
		MintID:        property.MintID,
		MetadataURI:   property.MetadataURI,
		AuthorityBump: property.AuthorityBump,
		Payer:         property.Payer,
	}

	result := database.FromContext(ctx, r.db).Clauses(clause.OnConflict{
		DoNothing: true,
	}).Create(&record)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to create property")
	}
	if result.RowsAffected == 0 {
		return domain.ErrDuplicateProperty
	}
	return nil
}

func (r *PropertyRepository) Get(ctx context.Context, address string) (domain.Property, error) {
	if r.mc != nil {
		if item, err := r.mc.Get(cacheKey(address)); err == nil {
			var property domain.Property
			if err := json.Unmarshal(item.Value, &property); err == nil {
				return property, nil
			}
		}
	}

	var record models.Property
	err := database.FromContext(ctx, r.db).
		Where("address = ?", address).
		Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Property{}, domain.NotFoundError{Resource: "property"}
	}
	if err != nil {
		return domain.Property{}, errors.Wrap(err, "failed to read property")
	}

	property := domain.Property{
		Address:       record.Address,
		Location:      record.Location,
		Value:         record.Value,
		MintID:        record.MintID,
		MetadataURI:   record.MetadataURI,
		AuthorityBump: record.AuthorityBump,
		Payer:         record.Payer,
	}

	// Property records are immutable after creation, so a plain set with no
	// invalidation story is enough.
	if r.mc != nil {
		if serialized, err := json.Marshal(property); err == nil {
			r.mc.Set(&memcache.Item{Key: cacheKey(address), Value: serialized, Expiration: 600})
		}
	}

	return property, nil
}

func cacheKey(address string) string {
	return "property:" + address
}
