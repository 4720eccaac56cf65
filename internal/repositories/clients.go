package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/amawa/backend/internal/models"
)

// ClientRepository provides access to client data
type ClientRepository struct {
	db *gorm.DB
}

// NewClientRepository creates a new client repository
func NewClientRepository(db *gorm.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

// Create creates a new client
func (r *ClientRepository) Create(ctx context.Context, client *models.Client) error {
	return r.db.WithContext(ctx).Create(client).Error
}

// GetByID gets a client by ID
func (r *ClientRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Client, error) {
	var client models.Client
	err := r.db.WithContext(ctx).First(&client, "id = ?", id).Error
	if err != nil {
		return nil, errors.Wrap(translate(err), "failed to get client")
	}
	return &client, nil
}

// Update saves changes to a client
func (r *ClientRepository) Update(ctx context.Context, client *models.Client) error {
	return r.db.WithContext(ctx).Save(client).Error
}

// Delete soft-deletes a client
func (r *ClientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.Client{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ClientListFilter narrows client listings
type ClientListFilter struct {
	District string
	Active   *bool
	Limit    int
	Offset   int
}

// List lists clients matching the filter
func (r *ClientRepository) List(ctx context.Context, filter ClientListFilter) ([]models.Client, error) {
	q := r.db.WithContext(ctx).Model(&models.Client{})
	if filter.District != "" {
		q = q.Where("district = ?", filter.District)
	}
	if filter.Active != nil {
		q = q.Where("active = ?", *filter.Active)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var clients []models.Client
	if err := q.Order("name").Find(&clients).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list clients")
	}
	return clients, nil
}

// ContractRepository provides access to contract data
type ContractRepository struct {
	db *gorm.DB
}

// NewContractRepository creates a new contract repository
func NewContractRepository(db *gorm.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

// Create creates a new contract
func (r *ContractRepository) Create(ctx context.Context, contract *models.Contract) error {
	return r.db.WithContext(ctx).Create(contract).Error
}

// GetByID gets a contract by ID
func (r *ContractRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	var contract models.Contract
	err := r.db.WithContext(ctx).First(&contract, "id = ?", id).Error
	if err != nil {
		return nil, errors.Wrap(translate(err), "failed to get contract")
	}
	return &contract, nil
}

// ListByClient lists a client's contracts
func (r *ContractRepository) ListByClient(ctx context.Context, clientID uuid.UUID) ([]models.Contract, error) {
	var contracts []models.Contract
	err := r.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("start_date DESC").
		Find(&contracts).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list contracts")
	}
	return contracts, nil
}

// ActiveByClient gets the client's active contract, if any
func (r *ContractRepository) ActiveByClient(ctx context.Context, clientID uuid.UUID) (*models.Contract, error) {
	var contract models.Contract
	err := r.db.WithContext(ctx).
		Where("client_id = ? AND active = ?", clientID, true).
		Order("start_date DESC").
		First(&contract).Error
	if err != nil {
		return nil, errors.Wrap(translate(err), "failed to get active contract")
	}
	return &contract, nil
}

// TechnicianRepository provides access to technician data
type TechnicianRepository struct {
	db *gorm.DB
}

// NewTechnicianRepository creates a new technician repository
func NewTechnicianRepository(db *gorm.DB) *TechnicianRepository {
	return &TechnicianRepository{db: db}
}

// Create creates a new technician
func (r *TechnicianRepository) Create(ctx context.Context, technician *models.Technician) error {
	return r.db.WithContext(ctx).Create(technician).Error
}

// GetByID gets a technician by ID
func (r *TechnicianRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Technician, error) {
	var technician models.Technician
	err := r.db.WithContext(ctx).First(&technician, "id = ?", id).Error
	if err != nil {
		return nil, errors.Wrap(translate(err), "failed to get technician")
	}
	return &technician, nil
}

// Update saves changes to a technician
func (r *TechnicianRepository) Update(ctx context.Context, technician *models.Technician) error {
	return r.db.WithContext(ctx).Save(technician).Error
}

// ListActive lists active technicians
func (r *TechnicianRepository) ListActive(ctx context.Context) ([]models.Technician, error) {
	var technicians []models.Technician
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("name").
		Find(&technicians).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list technicians")
	}
	return technicians, nil
}
