package mongodb

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirosfoundation/go-xsf/internal/domain"
	"github.com/sirosfoundation/go-xsf/internal/storage"
	"github.com/sirosfoundation/go-xsf/pkg/config"
)

func getTestMongoURI() string {
	uri := os.Getenv("MONGODB_TEST_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}
	return uri
}

func skipIfNoMongo(t *testing.T) *Store {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg := &config.MongoDBConfig{
		URI:      getTestMongoURI(),
		Database: "xsf_test",
		Timeout:  5,
	}

	store, err := NewStore(ctx, cfg)
	if err != nil {
		t.Skipf("MongoDB not available: %v", err)
		return nil
	}

	t.Cleanup(func() {
		ctx := context.Background()
		_ = store.database.Drop(ctx)
		_ = store.Close()
	})

	return store
}

func TestStore_Ping(t *testing.T) {
	store := skipIfNoMongo(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	assert.NoError(t, store.Ping(ctx))
}

func TestStore_SubStores(t *testing.T) {
	store := skipIfNoMongo(t)

	assert.NotNil(t, store.Users())
	assert.NotNil(t, store.People())
	assert.NotNil(t, store.Sessions())
}

func TestUserStore_CRUD(t *testing.T) {
	store := skipIfNoMongo(t)
	ctx := context.Background()

	user := &domain.User{
		ID:          domain.NewUserID(),
		Username:    "testuser",
		Email:       "test@example.com",
		DisplayName: "Test User",
		Roles:       []string{"PortalTestRole"},
	}

	require.NoError(t, store.Users().Create(ctx, user))

	retrieved, err := store.Users().GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Test User", retrieved.DisplayName)
	assert.Equal(t, []string{"PortalTestRole"}, retrieved.Roles)

	retrieved, err = store.Users().GetByUsername(ctx, "testuser")
	require.NoError(t, err)
	assert.Equal(t, user.ID, retrieved.ID)

	retrieved, err = store.Users().GetByEmail(ctx, "test@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, retrieved.ID)

	dup := &domain.User{ID: domain.NewUserID(), Username: "testuser"}
	assert.ErrorIs(t, store.Users().Create(ctx, dup), storage.ErrAlreadyExists)

	user.DisplayName = "Updated User"
	require.NoError(t, store.Users().Update(ctx, user))

	retrieved, err = store.Users().GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Updated User", retrieved.DisplayName)

	all, err := store.Users().GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, store.Users().Delete(ctx, user.ID))

	_, err = store.Users().GetByID(ctx, user.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, store.Users().Delete(ctx, user.ID), storage.ErrNotFound)
}

func TestPersonStore_CRUD(t *testing.T) {
	store := skipIfNoMongo(t)
	ctx := context.Background()

	for _, p := range domain.DefaultPeople() {
		require.NoError(t, store.People().Create(ctx, p))
	}

	all, err := store.People().GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 6)

	assert.ErrorIs(t, store.People().Create(ctx, &domain.Person{ID: "1"}), storage.ErrAlreadyExists)

	require.NoError(t, store.People().Update(ctx, &domain.Person{ID: "1", FirstName: "Donald", LastName: "Duck", Location: "Burbank"}))
	retrieved, err := store.People().GetByID(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "Donald", retrieved.FirstName)
	assert.Equal(t, "Burbank", retrieved.Location)

	assert.ErrorIs(t, store.People().Update(ctx, &domain.Person{ID: "missing"}), storage.ErrNotFound)

	require.NoError(t, store.People().Delete(ctx, "1"))
	_, err = store.People().GetByID(ctx, "1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSessionStore_CRUD(t *testing.T) {
	store := skipIfNoMongo(t)
	ctx := context.Background()

	session := domain.NewSession(time.Hour)
	session.UserID = "user-1"
	session.Attributes["theme"] = "dark"
	require.NoError(t, store.Sessions().Save(ctx, session))

	retrieved, err := store.Sessions().GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.UserID("user-1"), retrieved.UserID)
	assert.Equal(t, "dark", retrieved.Attributes["theme"])

	session.Attributes["theme"] = "light"
	require.NoError(t, store.Sessions().Save(ctx, session))
	retrieved, err = store.Sessions().GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "light", retrieved.Attributes["theme"])

	expired := domain.NewSession(time.Hour)
	expired.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, store.Sessions().Save(ctx, expired))

	_, err = store.Sessions().GetByID(ctx, expired.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	removed, err := store.Sessions().DeleteExpired(ctx)
	require.NoError(t, err)
	assert.LessOrEqual(t, removed, int64(1))

	require.NoError(t, store.Sessions().Delete(ctx, session.ID))
	_, err = store.Sessions().GetByID(ctx, session.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
