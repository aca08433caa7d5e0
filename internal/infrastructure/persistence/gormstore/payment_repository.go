package gormstore

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	domain "github.com/paysys/payment-integration/internal/domain/payment"
)

// paymentRecord is the persistence shape of a payment. The unique index on
// order_id is the storage-engine enforcement of one payment per order.
type paymentRecord struct {
	ID        string    `gorm:"primaryKey;size:36"`
	OrderID   string    `gorm:"size:255;uniqueIndex:idx_payments_order_id;not null"`
	Amount    int64     `gorm:"not null"`
	Status    string    `gorm:"size:20;not null;index"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (paymentRecord) TableName() string { return "payments" }

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, p *domain.Payment) (string, error) {
	if p == nil || p.ID == "" {
		return "", domain.ErrNotFound
	}

	record := paymentRecord{
		ID:        p.ID,
		OrderID:   p.OrderID,
		Amount:    p.Amount,
		Status:    string(p.Status),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}

	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return "", domain.ErrDuplicateOrder
		}
		return "", err
	}
	return p.ID, nil
}

// UpdateStatus is one conditional UPDATE: the WHERE clause carries the
// terminal-state guard and the same-status guard, so concurrent callers race
// on the database row and exactly one write wins. No read happens first.
func (r *PaymentRepository) UpdateStatus(ctx context.Context, orderID string, target domain.Status) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&paymentRecord{}).
		Where("order_id = ? AND status <> ? AND status <> ?", orderID, string(domain.StatusCompleted), string(target)).
		Updates(map[string]any{
			"status":     string(target),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
