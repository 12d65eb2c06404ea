package router

import (
	"github.com/MazaSebastian/DamafAPP/controllers"
	"github.com/MazaSebastian/DamafAPP/kds"
	"github.com/MazaSebastian/DamafAPP/middlewares"
	"github.com/MazaSebastian/DamafAPP/printer"
	"github.com/MazaSebastian/DamafAPP/services"
	"github.com/MazaSebastian/DamafAPP/utils"
	"github.com/gin-gonic/gin"
)

// Deps is everything the HTTP layer needs, built once in main.
type Deps struct {
	Catalog   *services.SlotCatalog
	Admission *services.AdmissionController
	Products  *services.ProductService
	Orders    *services.OrderService
	Lifecycle *services.LifecycleManager
	Kitchen   *services.KitchenFeed
	Tickets   *services.TicketService
	Hub       *kds.Hub

	JWTSecret      []byte
	CORSOrigin     string
	RateLimitRPS   float64
	RateLimitBurst int
	Printer        printer.Options
}

func SetupRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// Apply security middlewares
	r.Use(middlewares.LoggerMiddleware())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(d.CORSOrigin))
	if d.RateLimitRPS > 0 {
		r.Use(middlewares.NewRateLimiter(d.RateLimitRPS, d.RateLimitBurst).RateLimit())
	}

	slotCtrl := controllers.NewSlotController(d.Catalog, d.Admission)
	productCtrl := controllers.NewProductController(d.Products)
	orderCtrl := controllers.NewOrderController(d.Orders, d.Lifecycle, d.Kitchen)
	ticketCtrl := controllers.NewTicketController(d.Tickets, d.Printer)
	kdsCtrl := controllers.NewKDSController(d.Hub, d.CORSOrigin)

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	r.GET("/slots", slotCtrl.ListAvailable)
	r.GET("/products", productCtrl.ListProducts)
	r.POST("/orders", orderCtrl.CreateOrder)
	r.GET("/orders/:order_id", orderCtrl.GetOrderByID)

	// kitchen displays authenticate with ?token=
	r.GET("/kds/ws", middlewares.WebSocketAuthMiddleware(d.JWTSecret), kdsCtrl.KDSHandler)

	// ----------------------------------------------------------------
	//                      AUTHENTICATED ROUTES
	// ----------------------------------------------------------------
	auth := r.Group("/admin")
	auth.Use(middlewares.AuthMiddleware(d.JWTSecret))

	adminOnly := auth.Group("")
	adminOnly.Use(middlewares.RequireRole(utils.RoleAdmin))
	{
		adminOnly.GET("/slots", slotCtrl.ListTemplates)
		adminOnly.POST("/slots", slotCtrl.CreateTemplate)
		adminOnly.PUT("/slots/:slot_id", slotCtrl.UpdateTemplate)
		adminOnly.DELETE("/slots/:slot_id", slotCtrl.DeleteTemplate)

		adminOnly.POST("/products", productCtrl.CreateProduct)
		adminOnly.PATCH("/products/:product_id", productCtrl.UpdateProduct)

		adminOnly.DELETE("/orders/:order_id", orderCtrl.PurgeOrder)
	}

	staff := auth.Group("")
	staff.Use(middlewares.RequireRole(utils.RoleStaff))
	{
		staff.GET("/orders", orderCtrl.GetAllOrders)
		staff.POST("/orders/:order_id/items", orderCtrl.AddItem)
		staff.DELETE("/orders/:order_id/items/:item_id", orderCtrl.RemoveItem)
		staff.POST("/orders/:order_id/paid", orderCtrl.MarkPaid)
	}

	kitchen := auth.Group("")
	kitchen.Use(middlewares.RequireRole(utils.RoleStaff, utils.RoleChef))
	{
		kitchen.POST("/orders/:order_id/transition", orderCtrl.TransitionOrder)
		kitchen.GET("/kitchen/feed", orderCtrl.KitchenFeed)

		// every print is logged
		tickets := kitchen.Group("/orders/:order_id/ticket")
		tickets.Use(middlewares.TicketLoggerMiddleware())
		{
			tickets.POST("", ticketCtrl.RequestTicket)
			tickets.GET("", ticketCtrl.GetTicket)
		}
	}

	return r
}
