package presets

import (
	"context"
	"testing"

	"github.com/tendant/simple-cms/pkg/cms"
	memoryrepo "github.com/tendant/simple-cms/pkg/cms/repo/memory"
	memorystorage "github.com/tendant/simple-cms/pkg/cms/storage/memory"
)

// Test Presets
//
// Ready-made in-memory services for tests, adjusted with functional options.
// Servers are configured through the config package instead.

// Fixture credentials seeded by WithTestFixtures
const (
	FixtureUsername = "admin"
	FixturePassword = "admin"
)

// NewTesting creates a service for unit and integration tests: in-memory
// database and storage, isolated per call. Setup failures fail the test.
//
// Example:
//
//	func TestMyFeature(t *testing.T) {
//	    svc := presets.NewTesting(t, presets.WithTestFixtures())
//	    ...
//	}
func NewTesting(t testing.TB, opts ...TestingOption) cms.Service {
	t.Helper()

	cfg := &testConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	svc, err := cms.New(
		cms.WithRepository(memoryrepo.New()),
		cms.WithBlobStore(memorystorage.New()),
	)
	if err != nil {
		t.Fatalf("failed to create test service: %v", err)
	}

	if cfg.fixtures {
		if err := seedFixtures(context.Background(), svc); err != nil {
			t.Fatalf("failed to seed fixtures: %v", err)
		}
	}

	return svc
}

// testConfig holds testing preset configuration
type testConfig struct {
	fixtures bool
}

// TestingOption is a functional option for NewTesting
type TestingOption func(*testConfig)

// WithTestFixtures seeds an administrator, a page and a post
func WithTestFixtures() TestingOption {
	return func(cfg *testConfig) {
		cfg.fixtures = true
	}
}

func seedFixtures(ctx context.Context, svc cms.Service) error {
	if _, err := svc.CreateUser(ctx, cms.CreateUserRequest{
		Name:     "Administrator",
		Username: FixtureUsername,
		Password: FixturePassword,
	}); err != nil {
		return err
	}

	if _, err := svc.CreatePage(ctx, cms.Content{
		Title:   "Welcome",
		Content: "Welcome to the site.",
		Author:  "Administrator",
		Status:  "published",
	}); err != nil {
		return err
	}

	_, err := svc.CreatePost(ctx, cms.Content{
		Title:    "Hello World",
		Content:  "First post.",
		Author:   "Administrator",
		Status:   "published",
		Category: "news",
	})
	return err
}

// TestService is NewTesting with no options
func TestService(t testing.TB) cms.Service {
	t.Helper()
	return NewTesting(t)
}
