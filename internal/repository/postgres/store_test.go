package postgres

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/digital-galaxy/internal/config"
	"github.com/prn-tf/digital-galaxy/internal/domain"
	"github.com/prn-tf/digital-galaxy/internal/repository"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "serialization failure", err: &pgconn.PgError{Code: codeSerializationFailure}, want: true},
		{name: "deadlock", err: &pgconn.PgError{Code: codeDeadlockDetected}, want: true},
		{name: "connection exception", err: &pgconn.PgError{Code: "08006"}, want: true},
		{name: "unique violation", err: &pgconn.PgError{Code: codeUniqueViolation}, want: false},
		{name: "plain error", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isTransient(tt.err))
		})
	}
}

// openTestStore connects to the database named by GALAXY_TEST_POSTGRES_DSN.
func openTestStore(t *testing.T) (*DB, *repository.Repositories) {
	t.Helper()

	dsn := os.Getenv("GALAXY_TEST_POSTGRES_DSN")
	if dsn == "" || testing.Short() {
		t.Skip("GALAXY_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	db, err := newDBFromDSN(ctx, dsn, config.DatabaseConfig{
		MaxOpenConns:  10,
		MaxIdleConns:  1,
		RetryAttempts: 3,
		RetryBackoff:  10 * time.Millisecond,
	}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Migrate(ctx))
	return db, NewRepositories(db)
}

func TestStore_DownloadCountAndDecision(t *testing.T) {
	_, repos := openTestStore(t)
	ctx := context.Background()

	admin := domain.NewUser("admin+"+domain.NewID().String()+"@example.com", "hash")
	admin.IsAdmin = true
	require.NoError(t, repos.User.Create(ctx, admin))
	user := domain.NewUser("user+"+domain.NewID().String()+"@example.com", "hash")
	require.NoError(t, repos.User.Create(ctx, user))

	p := domain.NewProduct("pack", "", false, decimal.Zero, admin.ID)
	p.DownloadCount = 5
	require.NoError(t, repos.Product.Create(ctx, p))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repos.Product.IncrementDownloadCount(ctx, p.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := repos.Product.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(25), got.DownloadCount)

	paid := domain.NewProduct("course", "", true, decimal.RequireFromString("19.99"), admin.ID)
	require.NoError(t, repos.Product.Create(ctx, paid))
	got, err = repos.Product.GetByID(ctx, paid.ID)
	require.NoError(t, err)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("19.99")))

	req := domain.NewPaymentRequest(user.ID, paid, "please", "")
	require.NoError(t, repos.PaymentRequest.Create(ctx, req))

	_, err = repos.PaymentRequest.Decide(ctx, req.ID, domain.TicketApproved, admin.ID, time.Now())
	require.NoError(t, err)

	current, err := repos.PaymentRequest.Decide(ctx, req.ID, domain.TicketRejected, admin.ID, time.Now())
	require.ErrorIs(t, err, repository.ErrStateChanged)
	assert.Equal(t, domain.TicketApproved, current.Status)
}
