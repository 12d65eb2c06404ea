package Controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MazaSebastian/DamafAPP/database"
	"github.com/MazaSebastian/DamafAPP/kds"
	"github.com/MazaSebastian/DamafAPP/models"
	"github.com/MazaSebastian/DamafAPP/printer"
	"github.com/MazaSebastian/DamafAPP/router"
	"github.com/MazaSebastian/DamafAPP/services"
	"github.com/MazaSebastian/DamafAPP/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	testSecret = []byte("test-secret")
	testNow    = time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)
)

type testEnv struct {
	db     *gorm.DB
	router *gin.Engine
	hub    *kds.Hub

	burger, soda models.Product
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	utils.InitLogger("error")

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	clock := func() time.Time { return testNow }
	hub := kds.NewHub()
	catalog := services.NewSlotCatalog(db)
	admission := services.NewAdmissionController(db, catalog, services.NewLocalSlotLocker(), services.AdmissionOptions{Clock: clock})
	products := services.NewProductService(db)
	tickets := services.NewTicketService(db, hub, time.UTC, clock)

	env := &testEnv{db: db, hub: hub}
	env.router = router.SetupRouter(router.Deps{
		Catalog:   catalog,
		Admission: admission,
		Products:  products,
		Orders:    services.NewOrderService(db, admission, hub),
		Lifecycle: services.NewLifecycleManager(db, hub, clock),
		Kitchen:   services.NewKitchenFeed(db),
		Tickets:   tickets,
		Hub:       hub,
		JWTSecret: testSecret,
		Printer:   printer.Options{StoreName: "DAMAF", Currency: "$", Location: time.UTC},
	})

	env.burger = models.Product{Name: "Doble Cheddar", Price: decimal.NewFromInt(10), Active: true}
	env.soda = models.Product{Name: "Coca", Price: decimal.NewFromInt(5), Active: true}
	require.NoError(t, db.Create(&env.burger).Error)
	require.NoError(t, db.Create(&env.soda).Error)
	return env
}

func token(t *testing.T, role string) string {
	t.Helper()
	tok, err := utils.GenerateToken(testSecret, role+"-test", role, time.Hour)
	require.NoError(t, err)
	return tok
}

// do sends a JSON request; an empty role sends no Authorization header.
func (e *testEnv) do(t *testing.T, method, path, role string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(payload))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, role))
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func (e *testEnv) createSlot(t *testing.T, start string, capacity int) models.SlotTemplate {
	t.Helper()
	w := e.do(t, http.MethodPost, "/admin/slots", utils.RoleAdmin, map[string]interface{}{
		"start_time": start, "capacity": capacity, "is_delivery": true, "is_takeaway": true,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var slot models.SlotTemplate
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &slot))
	return slot
}

func (e *testEnv) orderPayload(slotID uint) map[string]interface{} {
	return map[string]interface{}{
		"channel":       "delivery",
		"slot_id":       slotID,
		"customer_name": "Lucia",
		"items": []map[string]interface{}{
			{"product_id": e.burger.ID, "quantity": 2},
			{"product_id": e.soda.ID, "quantity": 1},
		},
	}
}

func (e *testEnv) createOrder(t *testing.T, slotID uint) models.Order {
	t.Helper()
	w := e.do(t, http.MethodPost, "/orders", "", e.orderPayload(slotID))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var order models.Order
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &order))
	return order
}

func (e *testEnv) transition(t *testing.T, id uint, from, to models.OrderStatus, role string) *httptest.ResponseRecorder {
	t.Helper()
	return e.do(t, http.MethodPost, fmt.Sprintf("/admin/orders/%d/transition", id), role, map[string]string{
		"expected_status": string(from), "target_status": string(to),
	})
}
