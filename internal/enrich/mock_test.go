package enrich

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/prospect-cli/pkg/apollo"
	"github.com/sells-group/prospect-cli/pkg/exa"
)

// --- Apollo mock ---

type mockApolloClient struct {
	mock.Mock
}

func (m *mockApolloClient) SearchPeople(ctx context.Context, domain string, limit int) ([]apollo.Person, error) {
	args := m.Called(ctx, domain, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]apollo.Person), args.Error(1)
}

func (m *mockApolloClient) BulkEnrichPeople(ctx context.Context, ids []string) ([]apollo.Person, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]apollo.Person), args.Error(1)
}

func (m *mockApolloClient) BulkEnrichPhonesWithWebhook(ctx context.Context, ids []string, webhookURL string) error {
	args := m.Called(ctx, ids, webhookURL)
	return args.Error(0)
}

// --- Exa mock ---

type mockExaClient struct {
	mock.Mock
}

func (m *mockExaClient) SearchCompanies(ctx context.Context, query string, numResults int) ([]exa.Result, error) {
	args := m.Called(ctx, query, numResults)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]exa.Result), args.Error(1)
}
