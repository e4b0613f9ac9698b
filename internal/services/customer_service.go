package services

import (
	"context"
	"fmt"

	"inventory/internal/access"
	"inventory/internal/models"
	"inventory/internal/repositories"
)

// CustomerService handles business logic related to customers.
type CustomerService struct {
	repo repositories.CustomerRepository
}

func NewCustomerService(repo repositories.CustomerRepository) *CustomerService {
	return &CustomerService{repo: repo}
}

func (s *CustomerService) ListCustomers(ctx context.Context, session models.Session) ([]models.Customer, error) {
	if err := authorize(session, access.Customers, access.View); err != nil {
		return nil, err
	}
	return s.repo.GetAll(ctx)
}

func (s *CustomerService) GetCustomer(ctx context.Context, session models.Session, id string) (*models.Customer, error) {
	if err := authorize(session, access.Customers, access.View); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *CustomerService) CreateCustomer(ctx context.Context, session models.Session, in models.CustomerInput) (*models.Customer, error) {
	if err := authorize(session, access.Customers, access.Add); err != nil {
		return nil, err
	}
	var customer models.Customer
	in.ApplyTo(&customer)
	if err := validateStruct(customer); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, &customer); err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}
	return &customer, nil
}

func (s *CustomerService) UpdateCustomer(ctx context.Context, session models.Session, id string, in models.CustomerInput) (*models.Customer, error) {
	if err := authorize(session, access.Customers, access.Edit); err != nil {
		return nil, err
	}
	customer, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	in.ApplyTo(customer)
	if err := validateStruct(customer); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, customer); err != nil {
		return nil, fmt.Errorf("failed to update customer %s: %w", id, err)
	}
	return customer, nil
}

// DeleteCustomer removes a customer that no purchase references.
func (s *CustomerService) DeleteCustomer(ctx context.Context, session models.Session, id string) error {
	if err := authorize(session, access.Customers, access.Delete); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
