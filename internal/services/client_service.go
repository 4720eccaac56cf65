package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/amawa/backend/internal/cache"
	"github.com/amawa/backend/internal/models"
	"github.com/amawa/backend/internal/repositories"
	"github.com/amawa/backend/internal/search"
)

// ClientService handles the client directory
type ClientService struct {
	clientRepo   *repositories.ClientRepository
	contractRepo *repositories.ContractRepository
	cache        *cache.RedisCache
	search       *search.ElasticClient
}

// NewClientService creates a new client service
func NewClientService(db *gorm.DB, redisCache *cache.RedisCache, elasticClient *search.ElasticClient) *ClientService {
	return &ClientService{
		clientRepo:   repositories.NewClientRepository(db),
		contractRepo: repositories.NewContractRepository(db),
		cache:        redisCache,
		search:       elasticClient,
	}
}

// Create creates a client and indexes it for search
func (s *ClientService) Create(ctx context.Context, client *models.Client) error {
	if client.ID == uuid.Nil {
		client.ID = uuid.New()
	}
	if err := s.clientRepo.Create(ctx, client); err != nil {
		return err
	}

	s.index(ctx, client)
	return nil
}

// GetByID gets a client, served from cache when possible
func (s *ClientService) GetByID(ctx context.Context, id uuid.UUID) (*models.Client, error) {
	var cached models.Client
	if err := s.cache.Get(ctx, cache.ClientCacheKey(id.String()), &cached); err == nil {
		return &cached, nil
	}

	client, err := s.clientRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, cache.ClientCacheKey(id.String()), client, 0); err != nil {
		log.Warn().Err(err).Msg("Failed to cache client")
	}
	return client, nil
}

// Update saves changes to a client and refreshes cache and index
func (s *ClientService) Update(ctx context.Context, client *models.Client) error {
	if err := s.clientRepo.Update(ctx, client); err != nil {
		return err
	}

	if err := s.cache.Delete(ctx, cache.ClientCacheKey(client.ID.String())); err != nil {
		log.Warn().Err(err).Msg("Failed to invalidate client cache")
	}
	s.index(ctx, client)
	return nil
}

// Delete soft-deletes a client
func (s *ClientService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.clientRepo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, cache.ClientCacheKey(id.String())); err != nil {
		log.Warn().Err(err).Msg("Failed to invalidate client cache")
	}
	return nil
}

// List lists clients matching the filter
func (s *ClientService) List(ctx context.Context, filter repositories.ClientListFilter) ([]models.Client, error) {
	return s.clientRepo.List(ctx, filter)
}

// Search runs a full-text query over the client index
func (s *ClientService) Search(ctx context.Context, query string, limit int) ([]map[string]interface{}, error) {
	if s.search == nil {
		return nil, ErrSearchUnavailable
	}
	return s.search.SearchClients(ctx, query, limit)
}

// AddContract attaches a contract to a client
func (s *ClientService) AddContract(ctx context.Context, contract *models.Contract) error {
	if _, err := s.clientRepo.GetByID(ctx, contract.ClientID); err != nil {
		return err
	}
	if contract.ID == uuid.Nil {
		contract.ID = uuid.New()
	}
	return s.contractRepo.Create(ctx, contract)
}

// ListContracts lists a client's contracts
func (s *ClientService) ListContracts(ctx context.Context, clientID uuid.UUID) ([]models.Contract, error) {
	return s.contractRepo.ListByClient(ctx, clientID)
}

// index pushes a client into Elasticsearch; failures are logged, not fatal
func (s *ClientService) index(ctx context.Context, client *models.Client) {
	if s.search == nil {
		return
	}
	if err := s.search.IndexClient(ctx, client); err != nil {
		log.Warn().Err(err).Str("client_id", client.ID.String()).Msg("Failed to index client")
	}
}
