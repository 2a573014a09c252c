package public

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/storefront/coupon-engine/internal/constants"
	"github.com/storefront/coupon-engine/internal/models"
	"github.com/storefront/coupon-engine/internal/provider"
	"github.com/storefront/coupon-engine/internal/repository"
	"github.com/storefront/coupon-engine/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type publicTestResponse struct {
	StatusCode int             `json:"status_code"`
	Msg        string          `json:"msg"`
	Data       json.RawMessage `json:"data"`
}

func setupPublicCouponHandlerTest(t *testing.T) (*gin.Engine, *provider.Container) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:public_coupon_handler_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	couponRepo := repository.NewCouponRepository(db)
	usageRepo := repository.NewCouponUsageRepository(db)
	assignmentRepo := repository.NewCouponAssignmentRepository(db)
	container := &provider.Container{
		CouponRepo:         couponRepo,
		CouponUsageRepo:    usageRepo,
		CouponService:      service.NewCouponService(couponRepo, usageRepo, assignmentRepo, 0),
		CouponAdminService: service.NewCouponAdminService(couponRepo, usageRepo, assignmentRepo, true),
	}

	h := New(container)
	r := gin.New()
	r.POST("/coupons/validate", h.ValidateCoupon)
	r.POST("/coupons/redeem", h.RedeemCoupon)
	return r, container
}

func createPublicTestCoupon(t *testing.T, container *provider.Container, code string, maxUses int) *models.Coupon {
	t.Helper()
	now := time.Now().UTC()
	coupon, err := container.CouponAdminService.Create(service.CreateCouponInput{
		Code:           code,
		DiscountType:   constants.CouponTypePercentage,
		DiscountValue:  models.NewNumeric(decimal.NewFromInt(10)),
		ValidFrom:      now.Add(-time.Hour),
		ValidUntil:     now.Add(24 * time.Hour),
		MaxUses:        maxUses,
		MaxUsesPerUser: 1,
	})
	if err != nil {
		t.Fatalf("create coupon failed: %v", err)
	}
	return coupon
}

func postPublicJSON(t *testing.T, r *gin.Engine, path, body string, headers map[string]string) publicTestResponse {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("http status want 200 got %d", w.Code)
	}
	var resp publicTestResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v body=%s", err, w.Body.String())
	}
	return resp
}

func TestValidateCouponApplicable(t *testing.T) {
	r, container := setupPublicCouponHandlerTest(t)
	createPublicTestCoupon(t, container, "SAVE10", 10)

	resp := postPublicJSON(t, r, "/coupons/validate",
		`{"code":"save10","user_id":7,"cart_snapshot":{"subtotal":10000,"item_count":2}}`, nil)
	if resp.StatusCode != 0 {
		t.Fatalf("status_code want 0 got %d msg=%s", resp.StatusCode, resp.Msg)
	}
	var view couponDecisionView
	if err := json.Unmarshal(resp.Data, &view); err != nil {
		t.Fatalf("unmarshal data failed: %v", err)
	}
	if !view.Applicable || view.DiscountAmount != 1000 || view.Reason != "" {
		t.Fatalf("unexpected decision: %+v", view)
	}
	if view.Code != "SAVE10" {
		t.Fatalf("code want SAVE10 got %s", view.Code)
	}
}

func TestValidateCouponRejectedWithLocalizedMessage(t *testing.T) {
	r, _ := setupPublicCouponHandlerTest(t)

	resp := postPublicJSON(t, r, "/coupons/validate",
		`{"code":"MISSING","user_id":7,"cart_snapshot":{"subtotal":10000,"item_count":2}}`,
		map[string]string{"Accept-Language": "en-US"})
	if resp.StatusCode != 0 {
		t.Fatalf("rejection is a normal decision, got status_code %d", resp.StatusCode)
	}
	var view couponDecisionView
	if err := json.Unmarshal(resp.Data, &view); err != nil {
		t.Fatalf("unmarshal data failed: %v", err)
	}
	if view.Applicable || view.Reason != constants.CouponReasonNotFound {
		t.Fatalf("unexpected decision: %+v", view)
	}
	if view.Message != "Coupon code does not exist" {
		t.Fatalf("unexpected message: %s", view.Message)
	}
}

func TestValidateCouponInvalidCart(t *testing.T) {
	r, container := setupPublicCouponHandlerTest(t)
	createPublicTestCoupon(t, container, "SAVE10", 10)

	resp := postPublicJSON(t, r, "/coupons/validate",
		`{"code":"SAVE10","user_id":7,"cart_snapshot":{"subtotal":-1,"item_count":2}}`, nil)
	if resp.StatusCode != 400 {
		t.Fatalf("status_code want 400 got %d", resp.StatusCode)
	}

	resp = postPublicJSON(t, r, "/coupons/validate", `{"code":"SAVE10"}`, nil)
	if resp.StatusCode != 400 {
		t.Fatalf("missing user_id should be 400, got %d", resp.StatusCode)
	}
}

func TestRedeemCouponReplaysSameOrder(t *testing.T) {
	r, container := setupPublicCouponHandlerTest(t)
	coupon := createPublicTestCoupon(t, container, "SAVE10", 10)

	body := `{"code":"SAVE10","user_id":7,"order_no":"ORD-1","cart_snapshot":{"subtotal":5000,"item_count":1}}`
	first := postPublicJSON(t, r, "/coupons/redeem", body, nil)
	if first.StatusCode != 0 {
		t.Fatalf("first redeem failed: %d %s", first.StatusCode, first.Msg)
	}
	second := postPublicJSON(t, r, "/coupons/redeem", body, nil)
	if second.StatusCode != 0 {
		t.Fatalf("second redeem failed: %d %s", second.StatusCode, second.Msg)
	}

	var data struct {
		Decision couponDecisionView  `json:"decision"`
		Usage    *models.CouponUsage `json:"usage"`
		Replayed bool                `json:"replayed"`
	}
	if err := json.Unmarshal(second.Data, &data); err != nil {
		t.Fatalf("unmarshal data failed: %v", err)
	}
	if !data.Replayed || data.Usage == nil || data.Decision.DiscountAmount != 500 {
		t.Fatalf("unexpected replay result: %+v", data)
	}

	stored, err := container.CouponRepo.GetByID(coupon.ID)
	if err != nil {
		t.Fatalf("get coupon failed: %v", err)
	}
	if stored.CurrentUses != 1 {
		t.Fatalf("current_uses want 1 got %d", stored.CurrentUses)
	}
}

func TestRedeemCouponUserLimit(t *testing.T) {
	r, container := setupPublicCouponHandlerTest(t)
	createPublicTestCoupon(t, container, "ONCE", 10)

	postPublicJSON(t, r, "/coupons/redeem",
		`{"code":"ONCE","user_id":7,"order_no":"ORD-1","cart_snapshot":{"subtotal":5000,"item_count":1}}`, nil)
	resp := postPublicJSON(t, r, "/coupons/redeem",
		`{"code":"ONCE","user_id":7,"order_no":"ORD-2","cart_snapshot":{"subtotal":5000,"item_count":1}}`, nil)
	if resp.StatusCode != 0 {
		t.Fatalf("status_code want 0 got %d", resp.StatusCode)
	}
	var data struct {
		Decision couponDecisionView  `json:"decision"`
		Usage    *models.CouponUsage `json:"usage"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("unmarshal data failed: %v", err)
	}
	if data.Decision.Applicable || data.Decision.Reason != constants.CouponReasonUserLimitReached || data.Usage != nil {
		t.Fatalf("unexpected decision: %+v", data)
	}
}
