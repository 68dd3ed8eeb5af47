package pharmacy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"medica-system/internal/database/models"
)

const (
	MEDICINE_CACHE_PREFIX   = "pharmacy:medicine:"
	MEDICINE_LIST_CACHE_KEY = "pharmacy:medicines"
	CACHE_TTL_SHORT         = 5 * time.Minute
)

// Catalog owns medicine rows and is the only component allowed to touch
// stock_quantity. All mutations go through conditional updates.
type Catalog struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewCatalog(db *gorm.DB, redisClient *redis.Client) *Catalog {
	return &Catalog{db: db, redis: redisClient}
}

func (c *Catalog) InvalidateMedicineCaches(ctx context.Context, ids ...int64) {
	if c.redis == nil {
		return
	}
	_ = c.redis.Del(ctx, MEDICINE_LIST_CACHE_KEY)
	for _, id := range ids {
		cacheKey := fmt.Sprintf("%s%d", MEDICINE_CACHE_PREFIX, id)
		_ = c.redis.Del(ctx, cacheKey)
	}
}

func (c *Catalog) GetMedicine(ctx context.Context, id int64) (*models.Medicine, error) {
	if c.redis != nil {
		cacheKey := fmt.Sprintf("%s%d", MEDICINE_CACHE_PREFIX, id)
		if cached, err := c.redis.Get(ctx, cacheKey).Result(); err == nil {
			var med models.Medicine
			if json.Unmarshal([]byte(cached), &med) == nil {
				return &med, nil
			}
		}
	}

	var med models.Medicine
	if err := c.db.WithContext(ctx).First(&med, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, failf(KindNotFound, "medicine %d not found", id)
		}
		return nil, unexpected("failed to load medicine", err)
	}

	if c.redis != nil {
		if data, err := json.Marshal(med); err == nil {
			cacheKey := fmt.Sprintf("%s%d", MEDICINE_CACHE_PREFIX, med.ID)
			_ = c.redis.Set(ctx, cacheKey, data, CACHE_TTL_SHORT)
		}
	}

	return &med, nil
}

func (c *Catalog) ListMedicines(ctx context.Context) ([]models.Medicine, error) {
	if c.redis != nil {
		if cached, err := c.redis.Get(ctx, MEDICINE_LIST_CACHE_KEY).Result(); err == nil {
			var meds []models.Medicine
			if json.Unmarshal([]byte(cached), &meds) == nil {
				return meds, nil
			}
		}
	}

	var meds []models.Medicine
	if err := c.db.WithContext(ctx).Where("is_active = ?", true).Order("name ASC").Find(&meds).Error; err != nil {
		return nil, unexpected("failed to list medicines", err)
	}

	if c.redis != nil {
		if data, err := json.Marshal(meds); err == nil {
			_ = c.redis.Set(ctx, MEDICINE_LIST_CACHE_KEY, data, CACHE_TTL_SHORT)
		}
	}

	return meds, nil
}

// TryDecrementStock performs the single atomic conditional decrement:
// stock_quantity = stock_quantity - amount WHERE stock_quantity >= amount.
// Zero rows affected is the sole signal of insufficient stock. It runs on
// the caller's transaction so the decrement shares the caller's commit.
func (c *Catalog) TryDecrementStock(ctx context.Context, tx *gorm.DB, id, amount int64) (bool, error) {
	res := tx.WithContext(ctx).Model(&models.Medicine{}).
		Where("id = ? AND stock_quantity >= ?", id, amount).
		UpdateColumn("stock_quantity", gorm.Expr("stock_quantity - ?", amount))
	if res.Error != nil {
		return false, unexpected("failed to decrement stock", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// Restock adds amount to the medicine's stock and records the movement.
func (c *Catalog) Restock(ctx context.Context, actorID, id, amount int64) (*models.Medicine, error) {
	if amount < 1 {
		return nil, failf(KindInvalidQuantity, "restock amount must be at least 1")
	}

	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Medicine{}).
			Where("id = ?", id).
			UpdateColumn("stock_quantity", gorm.Expr("stock_quantity + ?", amount))
		if res.Error != nil {
			return unexpected("failed to restock medicine", res.Error)
		}
		if res.RowsAffected == 0 {
			return failf(KindNotFound, "medicine %d not found", id)
		}

		movement := models.StockMovement{
			MedicineID:   id,
			Quantity:     amount,
			MovementType: models.MovementRestock,
			CreatedBy:    actorID,
			CreatedAt:    time.Now(),
		}
		if err := tx.Create(&movement).Error; err != nil {
			return unexpected("failed to record stock movement", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.InvalidateMedicineCaches(ctx, id)

	var med models.Medicine
	if err := c.db.WithContext(ctx).First(&med, id).Error; err != nil {
		return nil, unexpected("failed to reload medicine", err)
	}
	return &med, nil
}
