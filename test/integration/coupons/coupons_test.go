//go:build integration

package coupons

import (
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"travelcore/pkg/model"
	"travelcore/test/integration/testutil"

	"go.mongodb.org/mongo-driver/bson"
)

var collections = []string{"coupons", "coupon_usages"}

func createCoupon(t *testing.T, client *testutil.Client, code string, maxUses int) model.Coupon {
	t.Helper()
	resp := client.POST(t, "/api/v1/coupons", map[string]any{
		"code":           code,
		"discount_type":  "percent",
		"discount_value": "10",
		"max_uses":       maxUses,
		"valid_from":     time.Now().Add(-time.Hour).UTC(),
		"valid_to":       time.Now().Add(24 * time.Hour).UTC(),
		"active":         true,
	}, nil)
	testutil.AssertStatusCode(t, resp, http.StatusCreated)

	var c model.Coupon
	resp.Decode(t, &c)
	return c
}

func apply(t *testing.T, client *testutil.Client, code, user string) *testutil.Response {
	return client.POST(t, "/api/v1/coupons/apply", map[string]any{
		"code":         code,
		"total_amount": "1000",
	}, map[string]string{"X-User-ID": user})
}

func TestApply_ConcurrentUsersRespectMaxUses(t *testing.T) {
	env := testutil.NewTestEnv()
	mongo, client := env.Setup(t, collections...)
	defer env.Cleanup(t, mongo, collections...)

	const maxUses, users = 5, 40
	c := createCoupon(t, client, "FLASH5", maxUses)

	var mu sync.Mutex
	statuses := map[int]int{}
	var wg sync.WaitGroup
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp := apply(t, client, c.Code, fmt.Sprintf("user-%d", i))
			mu.Lock()
			statuses[resp.StatusCode]++
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	if statuses[http.StatusOK] != maxUses {
		t.Errorf("successful redemptions = %d, want %d (statuses %v)", statuses[http.StatusOK], maxUses, statuses)
	}
	if got := mongo.CountDocuments(t, "coupon_usages", bson.M{"coupon_id": c.ID}); got != maxUses {
		t.Errorf("usage rows = %d, want %d", got, maxUses)
	}

	resp := client.GET(t, "/api/v1/coupons/code/"+c.Code)
	testutil.AssertStatusCode(t, resp, http.StatusOK)
	var stored model.Coupon
	resp.Decode(t, &stored)
	if stored.UsedCount != maxUses {
		t.Errorf("used_count = %d, want %d", stored.UsedCount, maxUses)
	}
}

func TestApply_SameUserRedeemsOnce(t *testing.T) {
	env := testutil.NewTestEnv()
	mongo, client := env.Setup(t, collections...)
	defer env.Cleanup(t, mongo, collections...)

	c := createCoupon(t, client, "ONCEONLY", 10)

	var wg sync.WaitGroup
	results := make([]*testutil.Response, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = apply(t, client, c.Code, "same-user")
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, resp := range results {
		switch resp.StatusCode {
		case http.StatusOK:
			ok++
		case http.StatusConflict:
			if resp.Reason() != "AlreadyRedeemed" && resp.Reason() != "Contended" {
				t.Errorf("unexpected conflict reason %q", resp.Reason())
			}
		default:
			t.Errorf("unexpected status %d: %s", resp.StatusCode, resp.Body)
		}
	}
	if ok != 1 {
		t.Errorf("successful redemptions = %d, want 1", ok)
	}
}

func TestApply_UnknownCoupon(t *testing.T) {
	env := testutil.NewTestEnv()
	mongo, client := env.Setup(t, collections...)
	defer env.Cleanup(t, mongo, collections...)

	resp := apply(t, client, "NOSUCHCODE", "user-1")
	testutil.AssertStatusCode(t, resp, http.StatusNotFound)
}
