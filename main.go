package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MazaSebastian/DamafAPP/config"
	"github.com/MazaSebastian/DamafAPP/database"
	"github.com/MazaSebastian/DamafAPP/kds"
	"github.com/MazaSebastian/DamafAPP/printer"
	"github.com/MazaSebastian/DamafAPP/router"
	"github.com/MazaSebastian/DamafAPP/services"
	"github.com/MazaSebastian/DamafAPP/utils"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or error loading: %v", err)
	}
	cfg := config.Load()
	utils.InitLogger(cfg.LogLevel)

	// `DamafAPP token chef kds-1` prints a signed token for a kitchen display
	if len(os.Args) > 1 && os.Args[1] == "token" {
		if err := printToken(cfg, os.Args[2:]); err != nil {
			utils.ErrorLogger.Fatal(err)
		}
		return
	}

	if cfg.JWTSecret == "" {
		utils.ErrorLogger.Fatal("JWT_SECRET must be set")
	}
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	loc, err := cfg.Location()
	if err != nil {
		utils.ErrorLogger.Fatalf("Invalid STORE_TIMEZONE: %v", err)
	}

	db, err := config.InitDB(cfg)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		utils.ErrorLogger.Fatalf("Failed to AutoMigrate: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := kds.NewHub()
	var publisher *services.EventPublisher
	if cfg.AMQPURL != "" {
		publisher, err = services.NewEventPublisher(cfg.AMQPURL)
		if err != nil {
			utils.ErrorLogger.Warnf("RabbitMQ unavailable, events stay local: %v", err)
			publisher = nil
		} else {
			defer publisher.Close()
		}
	}

	orderNotifiers := services.Notifiers{hub}
	lifecycleNotifiers := services.Notifiers{}
	if cfg.KDSPushMode != "poll" {
		lifecycleNotifiers = append(lifecycleNotifiers, hub)
	}
	if publisher != nil {
		orderNotifiers = append(orderNotifiers, publisher)
		lifecycleNotifiers = append(lifecycleNotifiers, publisher)
	}

	catalog := services.NewSlotCatalog(db)
	admission := services.NewAdmissionController(db, catalog, newSlotLocker(cfg), services.AdmissionOptions{
		Location:    loc,
		Cutoff:      cfg.SlotCutoffBuffer,
		LockTimeout: cfg.AdmissionLockTimeout,
	})
	products := services.NewProductService(db)
	orders := services.NewOrderService(db, admission, orderNotifiers)
	lifecycle := services.NewLifecycleManager(db, lifecycleNotifiers, nil)
	kitchen := services.NewKitchenFeed(db)
	tickets := services.NewTicketService(db, orderNotifiers, loc, nil)

	if cfg.KDSPushMode == "poll" {
		monitor := services.NewTransitionMonitor(db, hub, cfg.KDSPollInterval)
		monitor.Start()
		defer monitor.Stop()
	}

	if cfg.AutoTicketOnCooking {
		if publisher == nil {
			utils.ErrorLogger.Warn("AUTO_TICKET_ON_COOKING needs AMQP_URL; tickets stay manual")
		} else if consumer, err := services.NewTicketConsumer(cfg.AMQPURL, tickets); err != nil {
			utils.ErrorLogger.Warnf("Ticket consumer not started: %v", err)
		} else {
			defer consumer.Close()
			go func() {
				if err := consumer.Run(ctx); err != nil {
					utils.ErrorLogger.Errorf("Ticket consumer stopped: %v", err)
				}
			}()
		}
	}

	r := router.SetupRouter(router.Deps{
		Catalog:        catalog,
		Admission:      admission,
		Products:       products,
		Orders:         orders,
		Lifecycle:      lifecycle,
		Kitchen:        kitchen,
		Tickets:        tickets,
		Hub:            hub,
		JWTSecret:      []byte(cfg.JWTSecret),
		CORSOrigin:     cfg.CORSOrigin,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		Printer: printer.Options{
			StoreName: cfg.StoreName,
			Footer:    cfg.TicketFooter,
			Currency:  cfg.CurrencySymbol,
			Location:  loc,
		},
	})
	_ = r.SetTrustedProxies([]string{"127.0.0.1"})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		utils.InfoLogger.Printf("Listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.ErrorLogger.Fatal(err)
		}
	}()

	<-ctx.Done()
	utils.InfoLogger.Println("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.ErrorLogger.Errorf("Shutdown: %v", err)
	}
}

func newSlotLocker(cfg config.Config) services.SlotLocker {
	if cfg.SlotLockBackend != "redis" {
		return services.NewLocalSlotLocker()
	}
	client := config.NewRedisClient(cfg)
	if client == nil {
		utils.ErrorLogger.Warnf("Redis at %s unreachable, using in-process slot locks", cfg.RedisAddr)
		return services.NewLocalSlotLocker()
	}
	utils.InfoLogger.Printf("Slot locks backed by Redis at %s", cfg.RedisAddr)
	return services.NewRedisSlotLocker(client, cfg.SlotLockTTL)
}

func printToken(cfg config.Config, args []string) error {
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}
	if len(args) == 0 {
		return errors.New("usage: token <admin|staff|chef> [subject]")
	}
	subject := args[0]
	if len(args) > 1 {
		subject = args[1]
	}
	token, err := utils.GenerateToken([]byte(cfg.JWTSecret), subject, args[0], 30*24*time.Hour)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
