package billing

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/hirebridge/hirebridge/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides the DB operations used by the reconciliation core.
type Repository interface {
	GetSubscriptionByStripeID(stripeSubscriptionID string) (*models.Subscription, error)
	GetLatestSubscriptionByCustomerID(stripeCustomerID string) (*models.Subscription, error)
	GetSubscriptionByUserAndCustomer(userID uint, stripeCustomerID string) (*models.Subscription, error)
	UpsertSubscription(sub *models.Subscription) error

	GetUserByID(id uint) (*models.User, error)
	GetUserByStripeCustomerID(stripeCustomerID string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	SetUserStripeCustomerID(userID uint, stripeCustomerID string) error
	UpdateUserBillingFields(userID uint, fields map[string]interface{}) error

	GetPaymentByStripeInvoiceID(stripeInvoiceID string) (*models.Payment, error)
	CreatePayment(p *models.Payment) error
	UpdatePayment(p *models.Payment) error
	CountSucceededPaymentsByUser(userID uint) (int64, error)

	CreateSubscriptionEvent(ev *models.SubscriptionEvent) (bool, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a reconciliation repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetSubscriptionByStripeID(stripeSubscriptionID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.Where("stripe_subscription_id = ?", stripeSubscriptionID).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) GetLatestSubscriptionByCustomerID(stripeCustomerID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.Where("stripe_customer_id = ?", stripeCustomerID).
		Order("created_at DESC").
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) GetSubscriptionByUserAndCustomer(userID uint, stripeCustomerID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.Where("user_id = ? AND stripe_customer_id = ?", userID, stripeCustomerID).
		Order("created_at DESC").
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) UpsertSubscription(sub *models.Subscription) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "stripe_subscription_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"user_id",
			"stripe_customer_id",
			"status",
			"current_period_start",
			"current_period_end",
			"cancel_at_period_end",
			"canceled_at",
			"updated_at",
		}),
	}).Create(sub).Error; err != nil {
		return err
	}

	// Ensure ID is populated after upsert.
	return r.db.Where("stripe_subscription_id = ?", sub.StripeSubscriptionID).
		First(sub).Error
}

func (r *gormRepository) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *gormRepository) GetUserByStripeCustomerID(stripeCustomerID string) (*models.User, error) {
	var user models.User
	err := r.db.Where("stripe_customer_id = ?", stripeCustomerID).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *gormRepository) GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *gormRepository) SetUserStripeCustomerID(userID uint, stripeCustomerID string) error {
	return r.db.Model(&models.User{}).
		Where("id = ?", userID).
		Update("stripe_customer_id", stripeCustomerID).Error
}

func (r *gormRepository) UpdateUserBillingFields(userID uint, fields map[string]interface{}) error {
	return r.db.Model(&models.User{}).
		Where("id = ?", userID).
		Updates(fields).Error
}

func (r *gormRepository) GetPaymentByStripeInvoiceID(stripeInvoiceID string) (*models.Payment, error) {
	var p models.Payment
	err := r.db.Where("stripe_invoice_id = ?", stripeInvoiceID).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) CreatePayment(p *models.Payment) error {
	return r.db.Create(p).Error
}

func (r *gormRepository) UpdatePayment(p *models.Payment) error {
	return r.db.Save(p).Error
}

func (r *gormRepository) CountSucceededPaymentsByUser(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Payment{}).
		Where("user_id = ? AND status = ?", userID, models.PaymentStatusSucceeded).
		Count(&count).Error
	return count, err
}

func (r *gormRepository) CreateSubscriptionEvent(ev *models.SubscriptionEvent) (bool, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "stripe_event_id"},
		},
		DoNothing: true,
	}).Create(ev)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// IsNotFound reports whether err is the repository's record-not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsConstraintViolation reports whether err is a unique or foreign key
// constraint violation from the database. Cross-request races are settled
// by these constraints, so callers treat the violation as already handled.
func IsConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		// 1062 duplicate entry, 1452 foreign key constraint fails
		return mysqlErr.Number == 1062 || mysqlErr.Number == 1452
	}
	return false
}

// ConstraintErrorCode extracts the driver error code for logging, or 0.
func ConstraintErrorCode(err error) uint16 {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number
	}
	return 0
}
