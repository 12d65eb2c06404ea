package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MazaSebastian/DamafAPP/database"
	"github.com/MazaSebastian/DamafAPP/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// 10:00 UTC on the test day
var testNow = time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// setupPooledDB opens a file database shared by several connections, so
// concurrent transactions really interleave and only the slot locker orders them.
func setupPooledDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "orders.db") + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(8)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// overlapLocker wraps a SlotLocker and records how many callers hold each key at once.
type overlapLocker struct {
	inner SlotLocker

	mu       sync.Mutex
	holders  map[string]int
	maxHeld  int
	acquired int
}

func newOverlapLocker(inner SlotLocker) *overlapLocker {
	return &overlapLocker{inner: inner, holders: make(map[string]int)}
}

func (l *overlapLocker) Acquire(ctx context.Context, key string) (func(), error) {
	release, err := l.inner.Acquire(ctx, key)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.acquired++
	l.holders[key]++
	if l.holders[key] > l.maxHeld {
		l.maxHeld = l.holders[key]
	}
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		l.holders[key]--
		l.mu.Unlock()
		release()
	}, nil
}

func (l *overlapLocker) stats() (maxHeld, acquired int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.maxHeld, l.acquired
}

type recorder struct {
	mu          sync.Mutex
	created     []models.Order
	transitions []TransitionEvent
	tickets     []models.Ticket
}

func (r *recorder) OrderCreated(o models.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, o)
}

func (r *recorder) OrderTransitioned(ev TransitionEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, ev)
}

func (r *recorder) TicketGenerated(t models.Ticket) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tickets = append(r.tickets, t)
}

func (r *recorder) transitionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.transitions)
}

type fixture struct {
	db        *gorm.DB
	catalog   *SlotCatalog
	locker    SlotLocker
	admission *AdmissionController
	products  *ProductService
	orders    *OrderService
	lifecycle *LifecycleManager
	kitchen   *KitchenFeed
	tickets   *TicketService
	events    *recorder

	burger, soda, fries models.Product
}

func newFixture(t *testing.T, opts AdmissionOptions) *fixture {
	t.Helper()
	return newFixtureOn(t, setupTestDB(t), NewLocalSlotLocker(), opts)
}

func newFixtureOn(t *testing.T, db *gorm.DB, locker SlotLocker, opts AdmissionOptions) *fixture {
	t.Helper()
	if opts.Clock == nil {
		opts.Clock = fixedClock
	}
	f := &fixture{db: db, events: &recorder{}, locker: locker}
	f.catalog = NewSlotCatalog(db)
	f.admission = NewAdmissionController(db, f.catalog, f.locker, opts)
	f.products = NewProductService(db)
	f.orders = NewOrderService(db, f.admission, f.events)
	f.lifecycle = NewLifecycleManager(db, f.events, opts.Clock)
	f.kitchen = NewKitchenFeed(db)
	f.tickets = NewTicketService(db, f.events, opts.Location, opts.Clock)

	f.burger = f.product(t, "Doble Cheddar", 10)
	f.soda = f.product(t, "Coca", 5)
	f.fries = f.product(t, "Papas", 0)
	return f
}

func (f *fixture) product(t *testing.T, name string, price int64) models.Product {
	t.Helper()
	p := decimal.NewFromInt(price)
	out, err := f.products.Create(context.Background(), ProductInput{Name: &name, Price: &p})
	require.NoError(t, err)
	return *out
}

func (f *fixture) slot(t *testing.T, start string, capacity int) models.SlotTemplate {
	t.Helper()
	s, err := f.catalog.Upsert(context.Background(), nil, SlotInput{
		StartTime: start, Capacity: capacity, IsDelivery: true, IsTakeaway: true,
	})
	require.NoError(t, err)
	return *s
}

func (f *fixture) orderInput(slotID *uint) CreateOrderInput {
	return CreateOrderInput{
		Channel:       models.ChannelDelivery,
		SlotID:        slotID,
		PaymentMethod: "cash",
		CustomerName:  "Lucia",
		Items: []ItemInput{
			{ProductID: f.burger.ID, Quantity: 2},
			{ProductID: f.soda.ID, Quantity: 1},
		},
	}
}

func (f *fixture) liveCount(t *testing.T, slotID uint) int64 {
	t.Helper()
	n, err := liveCount(f.db, slotID, testNow.Format(dateLayout))
	require.NoError(t, err)
	return n
}

func uintPtr(v uint) *uint { return &v }
