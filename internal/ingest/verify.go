package ingest

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// DirectoryLookup resolves a channel-specific user id to an email address.
type DirectoryLookup interface {
	ResolveEmail(ctx context.Context, source domain.Source, userID string) (string, error)
}

// CustomerVerifier decides whether a sender email belongs to a known
// customer.
type CustomerVerifier interface {
	Verify(ctx context.Context, email string) (bool, error)
}

// domainVerifier accepts senders whose domain is on the allow-list or who
// already exist in the customers table.
type domainVerifier struct {
	allowedDomains []string
	customers      repository.CustomerRepository
}

// NewDomainVerifier constructs the default verifier.
func NewDomainVerifier(allowedDomains []string, customers repository.CustomerRepository) CustomerVerifier {
	return &domainVerifier{allowedDomains: allowedDomains, customers: customers}
}

func (v *domainVerifier) Verify(ctx context.Context, email string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false, nil
	}
	senderDomain := email[at+1:]
	for _, allowed := range v.allowedDomains {
		if strings.EqualFold(allowed, senderDomain) {
			return true, nil
		}
	}
	if v.customers == nil {
		return false, nil
	}
	_, err := v.customers.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
