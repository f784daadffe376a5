package inventory_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vpetrenko-dev/order-engine/internal/inventory"
)

func TestAllocate_RejectsNonPositiveQuantity(t *testing.T) {
	ledger := inventory.NewLedger()

	for _, qty := range []int{0, -3} {
		_, err := ledger.Allocate(context.Background(), nil, uuid.Must(uuid.NewV4()), qty)
		assert.Error(t, err)
	}
}

func TestRestock_RejectsNonPositiveQuantity(t *testing.T) {
	ledger := inventory.NewLedger()

	for _, qty := range []int{0, -1} {
		_, err := ledger.Restock(context.Background(), nil, uuid.Must(uuid.NewV4()), qty)
		assert.Error(t, err)
	}
}

func testEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func setupDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		testEnv("TEST_DB_HOST", "localhost"),
		testEnv("TEST_DB_PORT", "5432"),
		testEnv("TEST_DB_USER", "postgres"),
		testEnv("TEST_DB_PASSWORD", "postgres"),
		testEnv("TEST_DB_NAME", "order_engine_test"),
	)

	pool, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		t.Skipf("skipping: failed to create test database pool: %v", err)
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		t.Skipf("skipping: test database not reachable: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join("..", "..", "migrations", "000001_init.up.sql"))
	if err != nil {
		t.Fatalf("Failed to read schema file: %v", err)
	}
	for _, stmt := range strings.Split(string(raw), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := pool.Exec(context.Background(), stmt); err != nil {
			t.Fatalf("Failed to apply schema statement: %v", err)
		}
	}

	truncate := func() {
		_, err := pool.Exec(context.Background(),
			"TRUNCATE TABLE low_stock_alerts, order_items, orders, inventory_lots, customers CASCADE")
		if err != nil {
			t.Fatalf("Failed to truncate tables: %v", err)
		}
	}
	truncate()

	t.Cleanup(func() {
		truncate()
		pool.Close()
	})

	return pool
}

func createLot(t *testing.T, pool *pgxpool.Pool, ledger *inventory.Ledger, productID uuid.UUID, stock, reorderLevel int) *inventory.Lot {
	t.Helper()

	lot := &inventory.Lot{
		ProductID:     productID,
		WarehouseID:   uuid.Must(uuid.NewV4()),
		StockQuantity: stock,
		ReorderLevel:  reorderLevel,
	}
	require.NoError(t, ledger.CreateLot(context.Background(), pool, lot))
	return lot
}

func TestAllocate_DecrementsAndReportsLowStock(t *testing.T) {
	pool := setupDB(t)
	ledger := inventory.NewLedger()
	ctx := context.Background()

	productID := uuid.Must(uuid.NewV4())
	lot := createLot(t, pool, ledger, productID, 12, 10)

	res, err := ledger.Allocate(ctx, pool, productID, 3)
	require.NoError(t, err)

	assert.True(t, res.Allocated)
	assert.Equal(t, lot.ID, res.LotID)
	assert.Equal(t, lot.WarehouseID, res.WarehouseID)
	assert.Equal(t, 9, res.StockQuantity)
	assert.Equal(t, 10, res.ReorderLevel)
	assert.True(t, res.LowStock)

	// A decrement that stays above the reorder level is not low stock.
	productID2 := uuid.Must(uuid.NewV4())
	createLot(t, pool, ledger, productID2, 100, 10)

	res2, err := ledger.Allocate(ctx, pool, productID2, 5)
	require.NoError(t, err)
	assert.True(t, res2.Allocated)
	assert.Equal(t, 95, res2.StockQuantity)
	assert.False(t, res2.LowStock)
}

func TestAllocate_NoSingleLotSufficient(t *testing.T) {
	pool := setupDB(t)
	ledger := inventory.NewLedger()
	ctx := context.Background()

	productID := uuid.Must(uuid.NewV4())
	createLot(t, pool, ledger, productID, 4, 0)
	createLot(t, pool, ledger, productID, 4, 0)

	res, err := ledger.Allocate(ctx, pool, productID, 6)
	require.NoError(t, err)
	assert.False(t, res.Allocated)

	lots, err := ledger.GetLotsByProduct(ctx, pool, productID)
	require.NoError(t, err)
	require.Len(t, lots, 2)
	assert.Equal(t, 4, lots[0].StockQuantity)
	assert.Equal(t, 4, lots[1].StockQuantity)
}

func TestAllocate_ConcurrentNeverNegative(t *testing.T) {
	pool := setupDB(t)
	ledger := inventory.NewLedger()
	ctx := context.Background()

	productID := uuid.Must(uuid.NewV4())
	lot := createLot(t, pool, ledger, productID, 10, 0)

	const attempts = 20

	var wg sync.WaitGroup
	results := make([]inventory.AllocationResult, attempts)
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = ledger.Allocate(ctx, pool, productID, 1)
		}(i)
	}
	wg.Wait()

	wins := 0
	for i := 0; i < attempts; i++ {
		require.NoError(t, errs[i])
		if results[i].Allocated {
			wins++
		}
	}

	// Exactly the available stock is handed out; the rest are no-ops.
	assert.Equal(t, 10, wins)

	lots, err := ledger.GetLotsByProduct(ctx, pool, productID)
	require.NoError(t, err)
	require.Len(t, lots, 1)
	assert.Equal(t, lot.ID, lots[0].ID)
	assert.Equal(t, 0, lots[0].StockQuantity)
	assert.GreaterOrEqual(t, lots[0].StockQuantity, 0)
}

func TestAllocate_RacingForLastStock(t *testing.T) {
	pool := setupDB(t)
	ledger := inventory.NewLedger()
	ctx := context.Background()

	productID := uuid.Must(uuid.NewV4())
	createLot(t, pool, ledger, productID, 10, 0)

	// Two submissions race for 7 units each; only one can win.
	var wg sync.WaitGroup
	results := make([]inventory.AllocationResult, 2)
	errs := make([]error, 2)

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = ledger.Allocate(ctx, pool, productID, 7)
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.NotEqual(t, results[0].Allocated, results[1].Allocated, "exactly one racing allocation should win")

	lots, err := ledger.GetLotsByProduct(ctx, pool, productID)
	require.NoError(t, err)
	require.Len(t, lots, 1)
	assert.Equal(t, 3, lots[0].StockQuantity)
}

func TestRestock(t *testing.T) {
	pool := setupDB(t)
	ledger := inventory.NewLedger()
	ctx := context.Background()

	productID := uuid.Must(uuid.NewV4())
	lot := createLot(t, pool, ledger, productID, 3, 5)

	restocked, err := ledger.Restock(ctx, pool, lot.ID, 40)
	require.NoError(t, err)

	assert.Equal(t, 43, restocked.StockQuantity)
	require.NotNil(t, restocked.LastRestockedDate)
	assert.WithinDuration(t, time.Now().UTC(), *restocked.LastRestockedDate, time.Minute)

	_, err = ledger.Restock(ctx, pool, uuid.Must(uuid.NewV4()), 5)
	assert.ErrorIs(t, err, inventory.ErrLotNotFound)
}

func TestCreateLot_DuplicateProductWarehouse(t *testing.T) {
	pool := setupDB(t)
	ledger := inventory.NewLedger()
	ctx := context.Background()

	productID := uuid.Must(uuid.NewV4())
	lot := createLot(t, pool, ledger, productID, 10, 2)

	dup := &inventory.Lot{
		ProductID:     productID,
		WarehouseID:   lot.WarehouseID,
		StockQuantity: 5,
	}
	err := ledger.CreateLot(ctx, pool, dup)
	assert.ErrorIs(t, err, inventory.ErrLotExists)
}
