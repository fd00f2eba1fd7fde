package ingest

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

type fakeCustomerRepo struct {
	known map[string]*domain.Customer
}

func (f *fakeCustomerRepo) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	customer, ok := f.known[email]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return customer, nil
}

func (f *fakeCustomerRepo) GetOrCreate(ctx context.Context, email, name string) (*domain.Customer, error) {
	if customer, ok := f.known[email]; ok {
		return customer, nil
	}
	customer := &domain.Customer{ID: "cus_new", Email: email}
	f.known[email] = customer
	return customer, nil
}

func TestVerifyAllowsListedDomain(t *testing.T) {
	v := NewDomainVerifier([]string{"customer.test"}, &fakeCustomerRepo{known: map[string]*domain.Customer{}})

	ok, err := v.Verify(context.Background(), "jane@customer.test")

	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyAllowsExistingCustomer(t *testing.T) {
	repo := &fakeCustomerRepo{known: map[string]*domain.Customer{
		"bob@elsewhere.test": {ID: "cus_1", Email: "bob@elsewhere.test"},
	}}
	v := NewDomainVerifier([]string{"customer.test"}, repo)

	ok, err := v.Verify(context.Background(), "bob@elsewhere.test")

	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyRejectsUnknownSender(t *testing.T) {
	v := NewDomainVerifier([]string{"customer.test"}, &fakeCustomerRepo{known: map[string]*domain.Customer{}})

	ok, err := v.Verify(context.Background(), "stranger@evil.test")

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyRejectsMalformedAddress(t *testing.T) {
	v := NewDomainVerifier([]string{"customer.test"}, &fakeCustomerRepo{known: map[string]*domain.Customer{}})

	for _, email := range []string{"", "no-at-sign", "@customer.test", "jane@"} {
		ok, err := v.Verify(context.Background(), email)
		require.NoError(t, err)
		assert.False(t, ok, email)
	}
}

func TestVerifyDomainMatchIsCaseInsensitive(t *testing.T) {
	v := NewDomainVerifier([]string{"Customer.Test"}, &fakeCustomerRepo{known: map[string]*domain.Customer{}})

	ok, err := v.Verify(context.Background(), "JANE@CUSTOMER.TEST")

	require.NoError(t, err)
	assert.True(t, ok)
}
