package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"lucky_lottery/internal/cache"
	"lucky_lottery/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pendingResponse struct {
	Transactions []domain.Transaction `json:"transactions"`
	Cached       bool                 `json:"cached"`
}

func newRedisHarness(t *testing.T) (*harness, *cache.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := cache.New(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = rc.Close() })
	return newCachedHarness(t, rc), rc, mr
}

func (h *harness) pending(t *testing.T, path, token string) pendingResponse {
	t.Helper()
	w := h.do(t, http.MethodGet, path, token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode[pendingResponse](t, w)
}

func TestPendingDeposits_CachedUntilMediation(t *testing.T) {
	h, _, mr := newRedisHarness(t)
	_, token := h.signup(t, "demo@example.com")
	adminToken := h.login(t, "admin@lucky.test", "admin123")

	w := h.do(t, http.MethodPost, "/wallet/deposit", token, gin.H{"amount": 50, "transaction_id": "UPI12345", "name": "Demo User"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	first := h.pending(t, "/admin/deposits", adminToken)
	assert.False(t, first.Cached)
	require.Len(t, first.Transactions, 1)

	second := h.pending(t, "/admin/deposits", adminToken)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Transactions[0].ID, second.Transactions[0].ID)
	assert.Equal(t, 60*time.Second, mr.TTL(cache.KeyPendingDeposits+":v1"))

	w = h.do(t, http.MethodPost, "/admin/transactions/"+first.Transactions[0].ID+"/approve", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	after := h.pending(t, "/admin/deposits", adminToken)
	assert.False(t, after.Cached)
	assert.Empty(t, after.Transactions, "an approved deposit leaves the pending list at once")
}

func TestPendingWithdrawals_InvalidatedByNewRequest(t *testing.T) {
	h, _, _ := newRedisHarness(t)
	userID, token := h.signup(t, "demo@example.com")
	h.fund(t, userID, 100)
	adminToken := h.login(t, "admin@lucky.test", "admin123")

	assert.Empty(t, h.pending(t, "/admin/withdrawals", adminToken).Transactions)
	assert.True(t, h.pending(t, "/admin/withdrawals", adminToken).Cached)

	w := h.do(t, http.MethodPost, "/wallet/withdraw", token, gin.H{"amount": 40, "upi_id": "demo@upi", "name": "Demo User"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	resp := h.pending(t, "/admin/withdrawals", adminToken)
	assert.False(t, resp.Cached)
	require.Len(t, resp.Transactions, 1)

	w = h.do(t, http.MethodPost, "/admin/transactions/"+resp.Transactions[0].ID+"/reject", adminToken, gin.H{"type": "withdraw"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Empty(t, h.pending(t, "/admin/withdrawals", adminToken).Transactions)
}

func TestPendingHandler_ApprovalDuringFillIsNotServedFromCache(t *testing.T) {
	h, rc, _ := newRedisHarness(t)
	_, token := h.signup(t, "demo@example.com")
	w := h.do(t, http.MethodPost, "/wallet/deposit", token, gin.H{"amount": 50, "transaction_id": "UPI12345", "name": "Demo User"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// The list is read, then an admin approves before the handler fills the cache
	approved := false
	list := func() []domain.Transaction {
		txs := h.admin.PendingDeposits()
		if !approved && len(txs) == 1 {
			approved = true
			_, err := h.admin.ApproveDeposit(context.Background(), txs[0].ID)
			require.NoError(t, err)
		}
		return txs
	}
	r := gin.New()
	r.GET("/pending", PendingHandler(list, rc, cache.KeyPendingDeposits))
	h.router = r

	racing := h.pending(t, "/pending", "")
	require.Len(t, racing.Transactions, 1)
	require.True(t, approved)

	got, err := h.ledger.Get(racing.Transactions[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)

	next := h.pending(t, "/pending", "")
	assert.False(t, next.Cached)
	assert.Empty(t, next.Transactions)
}

func TestDepositInfo(t *testing.T) {
	h := newHarness(t)
	_, token := h.signup(t, "demo@example.com")

	w := h.do(t, http.MethodGet, "/wallet/deposit-info", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(t, http.MethodGet, "/wallet/deposit-info", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	info := decode[map[string]string](t, w)
	assert.Equal(t, "9933308636@ybl", info["upi_id"])
	assert.Equal(t, "LuckyLottery", info["payee_name"])
	assert.Equal(t, "upi://pay?pa=9933308636@ybl&pn=LuckyLottery", info["upi_uri"])

	assert.Equal(t, "upi://pay?pa=x@upi&pn=Lucky+Lottery", UPIPayURI("x@upi", "Lucky Lottery"))
}

func TestDepositInfo_UnconfiguredPayee(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/deposit-info", DepositInfoHandler("", "LuckyLottery"))
	h := &harness{router: r}

	w := h.do(t, http.MethodGet, "/deposit-info", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
