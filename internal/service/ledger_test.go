package service

import (
	"fmt"
	"sync"
	"testing"

	"canteen_system/internal/apperr"
	"canteen_system/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestPurchaseDebitsBalanceAndStock(t *testing.T) {
	f := newFixture(t)
	user := f.user(t, "100", domain.UserActive)
	product := f.product(t, "40", 5)

	entry, err := f.svc.Purchase(ctx, PurchaseInput{
		UserID:      user.ID,
		Items:       []LineItem{{ProductID: product.ID, Quantity: 2}},
		PerformedBy: user.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TxPurchase, entry.Type)
	assertDecimal(t, "80", entry.Amount)
	assertDecimal(t, "100", entry.BalanceBefore)
	assertDecimal(t, "20", entry.BalanceAfter)
	require.Len(t, entry.Purchases, 1)
	assert.Equal(t, 2, entry.Purchases[0].Quantity)
	assertDecimal(t, "40", entry.Purchases[0].UnitPrice)

	var u domain.User
	f.reload(t, &u, user.ID)
	assertDecimal(t, "20", u.Balance)

	var p domain.Product
	f.reload(t, &p, product.ID)
	assert.Equal(t, 3, p.Stock)

	assert.Equal(t, int64(1), f.count(t, &domain.Transaction{}))
	assert.Equal(t, int64(1), f.count(t, &domain.Purchase{}))
}

func TestPurchaseInsufficientBalancePersistsNothing(t *testing.T) {
	f := newFixture(t)
	user := f.user(t, "50", domain.UserActive)
	product := f.product(t, "30", 10)

	_, err := f.svc.Purchase(ctx, PurchaseInput{
		UserID: user.ID,
		Items:  []LineItem{{ProductID: product.ID, Quantity: 2}},
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindInsufficient))
	assert.Equal(t, "Insufficient balance", err.Error())

	var u domain.User
	f.reload(t, &u, user.ID)
	assertDecimal(t, "50", u.Balance)
	var p domain.Product
	f.reload(t, &p, product.ID)
	assert.Equal(t, 10, p.Stock)
	assert.Zero(t, f.count(t, &domain.Transaction{}))
	assert.Zero(t, f.count(t, &domain.Purchase{}))
}

func TestPurchaseInvalidProductRollsBackValidLines(t *testing.T) {
	f := newFixture(t)
	user := f.user(t, "100", domain.UserActive)
	valid := f.product(t, "10", 5)
	inactive := f.product(t, "10", 5)
	require.NoError(t, f.svc.DeleteProduct(ctx, inactive.ID))

	cases := []struct {
		name string
		bad  uint
		qty  int
	}{
		{"inactive", inactive.ID, 1},
		{"nonexistent", 9999, 1},
		{"out of stock", valid.ID, 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Purchase(ctx, PurchaseInput{
				UserID: user.ID,
				Items: []LineItem{
					{ProductID: valid.ID, Quantity: 1},
					{ProductID: tc.bad, Quantity: tc.qty},
				},
			})
			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.KindInvalid))
			assert.Equal(t, fmt.Sprintf("Invalid or out-of-stock product: %d", tc.bad), err.Error())

			var u domain.User
			f.reload(t, &u, user.ID)
			assertDecimal(t, "100", u.Balance)
			var p domain.Product
			f.reload(t, &p, valid.ID)
			assert.Equal(t, 5, p.Stock)
			assert.Zero(t, f.count(t, &domain.Transaction{}))
		})
	}
}

func TestPurchaseMergesRepeatedProducts(t *testing.T) {
	f := newFixture(t)
	user := f.user(t, "100", domain.UserActive)
	product := f.product(t, "5", 3)

	// 2 + 2 exceeds the stock of 3 even though each line alone fits
	_, err := f.svc.Purchase(ctx, PurchaseInput{
		UserID: user.ID,
		Items:  []LineItem{{ProductID: product.ID, Quantity: 2}, {ProductID: product.ID, Quantity: 2}},
	})
	assert.True(t, apperr.Is(err, apperr.KindInvalid))

	entry, err := f.svc.Purchase(ctx, PurchaseInput{
		UserID: user.ID,
		Items:  []LineItem{{ProductID: product.ID, Quantity: 1}, {ProductID: product.ID, Quantity: 2}},
	})
	require.NoError(t, err)
	require.Len(t, entry.Purchases, 1)
	assert.Equal(t, 3, entry.Purchases[0].Quantity)
	assertDecimal(t, "15", entry.Amount)
}

func TestPurchaseRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	user := f.user(t, "100", domain.UserActive)
	product := f.product(t, "5", 3)

	_, err := f.svc.Purchase(ctx, PurchaseInput{UserID: user.ID})
	assert.True(t, apperr.Is(err, apperr.KindInvalid))

	_, err = f.svc.Purchase(ctx, PurchaseInput{UserID: user.ID, Items: []LineItem{{ProductID: product.ID, Quantity: 0}}})
	assert.True(t, apperr.Is(err, apperr.KindInvalid))

	_, err = f.svc.Purchase(ctx, PurchaseInput{UserID: 4242, Items: []LineItem{{ProductID: product.ID, Quantity: 1}}})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestPurchaseRequiresActiveUser(t *testing.T) {
	f := newFixture(t)
	product := f.product(t, "5", 3)

	for _, status := range []domain.UserStatus{domain.UserInactive, domain.UserBlocked} {
		user := f.user(t, "100", status)
		_, err := f.svc.Purchase(ctx, PurchaseInput{UserID: user.ID, Items: []LineItem{{ProductID: product.ID, Quantity: 1}}})
		assert.True(t, apperr.Is(err, apperr.KindForbidden), string(status))
	}
	assert.Zero(t, f.count(t, &domain.Transaction{}))
}

func TestPurchaseKeepsPriceSnapshot(t *testing.T) {
	f := newFixture(t)
	user := f.user(t, "100", domain.UserActive)
	product := f.product(t, "12.50", 10)

	entry, err := f.svc.Purchase(ctx, PurchaseInput{UserID: user.ID, Items: []LineItem{{ProductID: product.ID, Quantity: 2}}})
	require.NoError(t, err)

	_, err = f.svc.UpdateProduct(ctx, product.ID, ProductInput{Name: product.Name, Price: decimal.NewFromInt(99), Stock: 8})
	require.NoError(t, err)

	stored, err := f.svc.GetTransaction(ctx, entry.ID, user.ID)
	require.NoError(t, err)
	require.Len(t, stored.Purchases, 1)
	assertDecimal(t, "12.5", stored.Purchases[0].UnitPrice)
	assertDecimal(t, "25", stored.Purchases[0].Subtotal)
	assertDecimal(t, "75", stored.BalanceAfter)
}

func TestConcurrentPurchasesCannotOverdraw(t *testing.T) {
	f := newFixture(t)
	user := f.user(t, "100", domain.UserActive)
	first := f.product(t, "60", 5)
	second := f.product(t, "60", 5)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, p := range []*domain.Product{first, second} {
		wg.Add(1)
		go func(i int, productID uint) {
			defer wg.Done()
			_, errs[i] = f.svc.Purchase(ctx, PurchaseInput{UserID: user.ID, Items: []LineItem{{ProductID: productID, Quantity: 1}}})
		}(i, p.ID)
	}
	wg.Wait()

	successes, insufficient := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case apperr.Is(err, apperr.KindInsufficient):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, insufficient)

	var u domain.User
	f.reload(t, &u, user.ID)
	assertDecimal(t, "40", u.Balance)
	assert.Equal(t, int64(1), f.count(t, &domain.Transaction{}))
}

// raceBeforeUpdate runs stmt inside the purchase transaction right before the
// first UPDATE on table, as a writer landing between the checks and the write would.
func raceBeforeUpdate(t *testing.T, gdb *gorm.DB, table, stmt string, args ...any) {
	t.Helper()
	var once sync.Once
	err := gdb.Callback().Update().Before("gorm:update").Register("test:race_"+table, func(tx *gorm.DB) {
		if tx.Statement.Table != table {
			return
		}
		once.Do(func() {
			if err := tx.Session(&gorm.Session{NewDB: true}).Exec(stmt, args...).Error; err != nil {
				_ = tx.AddError(err)
			}
		})
	})
	require.NoError(t, err)
}

func TestPurchaseBalanceGuardRejectsLateDebit(t *testing.T) {
	f := newFixture(t)
	user := f.user(t, "10", domain.UserActive)
	product := f.product(t, "8", 5)
	raceBeforeUpdate(t, f.db, "users", "UPDATE users SET balance = balance - 5 WHERE id = ?", user.ID)

	_, err := f.svc.Purchase(ctx, PurchaseInput{UserID: user.ID, Items: []LineItem{{ProductID: product.ID, Quantity: 1}}})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindInsufficient))
	assert.Equal(t, "Insufficient balance", err.Error())

	var u domain.User
	f.reload(t, &u, user.ID)
	assertDecimal(t, "10", u.Balance)
	var p domain.Product
	f.reload(t, &p, product.ID)
	assert.Equal(t, 5, p.Stock)
	assert.Zero(t, f.count(t, &domain.Transaction{}))
	assert.Zero(t, f.count(t, &domain.Purchase{}))
}

func TestPurchaseStockGuardRejectsLateSale(t *testing.T) {
	f := newFixture(t)
	user := f.user(t, "100", domain.UserActive)
	product := f.product(t, "10", 2)
	raceBeforeUpdate(t, f.db, "products", "UPDATE products SET stock = 0 WHERE id = ?", product.ID)

	_, err := f.svc.Purchase(ctx, PurchaseInput{UserID: user.ID, Items: []LineItem{{ProductID: product.ID, Quantity: 2}}})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindInvalid))
	assert.Equal(t, fmt.Sprintf("Invalid or out-of-stock product: %d", product.ID), err.Error())

	var u domain.User
	f.reload(t, &u, user.ID)
	assertDecimal(t, "100", u.Balance)
	var p domain.Product
	f.reload(t, &p, product.ID)
	assert.Equal(t, 2, p.Stock)
	assert.Zero(t, f.count(t, &domain.Transaction{}))
}

func TestFractionalBalancesStayExact(t *testing.T) {
	f := newFixture(t)
	user := f.user(t, "0", domain.UserActive)
	forty := f.product(t, "0.40", 10)
	thirty := f.product(t, "0.30", 10)

	_, err := f.svc.Recharge(ctx, RechargeInput{UserID: user.ID, Amount: decimal.RequireFromString("0.70")})
	require.NoError(t, err)

	entry, err := f.svc.Purchase(ctx, PurchaseInput{UserID: user.ID, Items: []LineItem{{ProductID: forty.ID, Quantity: 1}}})
	require.NoError(t, err)
	assertDecimal(t, "0.30", entry.BalanceAfter)

	entry, err = f.svc.Purchase(ctx, PurchaseInput{UserID: user.ID, Items: []LineItem{{ProductID: thirty.ID, Quantity: 1}}})
	require.NoError(t, err)
	assertDecimal(t, "0.30", entry.BalanceBefore)
	assertDecimal(t, "0", entry.BalanceAfter)

	for i := 0; i < 10; i++ {
		_, err = f.svc.Recharge(ctx, RechargeInput{UserID: user.ID, Amount: decimal.RequireFromString("0.10")})
		require.NoError(t, err)
	}
	_, err = f.svc.Purchase(ctx, PurchaseInput{UserID: user.ID, Items: []LineItem{
		{ProductID: forty.ID, Quantity: 1},
		{ProductID: thirty.ID, Quantity: 2},
	}})
	require.NoError(t, err)

	var u domain.User
	f.reload(t, &u, user.ID)
	assertDecimal(t, "0", u.Balance)

	profile, _, err := f.svc.Profile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "0", profile.Balance.String())
}

func TestPurchaseWithPIN(t *testing.T) {
	f := newFixture(t)
	user := f.user(t, "100", domain.UserActive)
	product := f.product(t, "10", 10)
	require.NoError(t, f.svc.SetPIN(ctx, user.ID, "1234"))

	in := PurchaseInput{UserID: user.ID, Items: []LineItem{{ProductID: product.ID, Quantity: 1}}}
	_, err := f.svc.Purchase(ctx, in)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	in.PIN = "9999"
	_, err = f.svc.Purchase(ctx, in)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	in.PIN = "1234"
	_, err = f.svc.Purchase(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, int64(1), f.count(t, &domain.Transaction{}))
}

func TestRechargeCreditsBalance(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "0", domain.UserActive)
	user := f.user(t, "10", domain.UserActive)

	entry, err := f.svc.Recharge(ctx, RechargeInput{UserID: user.ID, Amount: decimal.RequireFromString("25.50"), PerformedBy: admin.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.TxRecharge, entry.Type)
	assertDecimal(t, "10", entry.BalanceBefore)
	assertDecimal(t, "35.5", entry.BalanceAfter)
	assert.Equal(t, admin.ID, entry.PerformedBy)

	var u domain.User
	f.reload(t, &u, user.ID)
	assertDecimal(t, "35.5", u.Balance)

	_, err = f.svc.Recharge(ctx, RechargeInput{UserID: user.ID, Amount: decimal.Zero})
	assert.True(t, apperr.Is(err, apperr.KindInvalid))

	_, err = f.svc.Recharge(ctx, RechargeInput{UserID: user.ID, Amount: decimal.RequireFromString("0.001")})
	assert.True(t, apperr.Is(err, apperr.KindInvalid))
	assert.Equal(t, int64(1), f.count(t, &domain.Transaction{}))

	blocked := f.user(t, "0", domain.UserBlocked)
	_, err = f.svc.Recharge(ctx, RechargeInput{UserID: blocked.ID, Amount: decimal.NewFromInt(5)})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestPurchaseInvalidatesProfileCache(t *testing.T) {
	f := newFixture(t)
	user := f.user(t, "100", domain.UserActive)
	product := f.product(t, "10", 10)

	profile, cached, err := f.svc.Profile(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, cached)
	assertDecimal(t, "100", profile.Balance)

	_, cached, err = f.svc.Profile(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, cached)

	_, err = f.svc.Purchase(ctx, PurchaseInput{UserID: user.ID, Items: []LineItem{{ProductID: product.ID, Quantity: 1}}})
	require.NoError(t, err)

	profile, cached, err = f.svc.Profile(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, cached)
	assertDecimal(t, "90", profile.Balance)
}

func TestListTransactions(t *testing.T) {
	f := newFixture(t)
	user := f.user(t, "100", domain.UserActive)
	other := f.user(t, "100", domain.UserActive)
	product := f.product(t, "10", 10)

	_, err := f.svc.Recharge(ctx, RechargeInput{UserID: user.ID, Amount: decimal.NewFromInt(5)})
	require.NoError(t, err)
	_, err = f.svc.Purchase(ctx, PurchaseInput{UserID: user.ID, Items: []LineItem{{ProductID: product.ID, Quantity: 1}}})
	require.NoError(t, err)
	_, err = f.svc.Purchase(ctx, PurchaseInput{UserID: other.ID, Items: []LineItem{{ProductID: product.ID, Quantity: 1}}})
	require.NoError(t, err)

	page, err := f.svc.ListTransactions(ctx, TransactionFilter{UserID: user.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, domain.TxPurchase, page.Items[0].Type) // newest first
	assert.Len(t, page.Items[0].Purchases, 1)

	page, err = f.svc.ListTransactions(ctx, TransactionFilter{Type: domain.TxPurchase})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	_, err = f.svc.GetTransaction(ctx, page.Items[0].ID, 4242)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestHistoryCacheDroppedOnNewEntry(t *testing.T) {
	f := newFixture(t)
	user := f.user(t, "100", domain.UserActive)

	_, err := f.svc.Recharge(ctx, RechargeInput{UserID: user.ID, Amount: decimal.NewFromInt(1)})
	require.NoError(t, err)

	page, cached, err := f.svc.History(ctx, user.ID, 1, 10)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, int64(1), page.Total)

	_, cached, err = f.svc.History(ctx, user.ID, 1, 10)
	require.NoError(t, err)
	assert.True(t, cached)

	_, err = f.svc.Recharge(ctx, RechargeInput{UserID: user.ID, Amount: decimal.NewFromInt(1)})
	require.NoError(t, err)
	page, cached, err = f.svc.History(ctx, user.ID, 1, 10)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, int64(2), page.Total)
}
