package controllers

import (
	"net/http"

	"github.com/MazaSebastian/DamafAPP/kds"
	"github.com/MazaSebastian/DamafAPP/utils"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type KDSController struct {
	Hub      *kds.Hub
	upgrader websocket.Upgrader
}

// NewKDSController accepts websocket upgrades from allowedOrigin, or from any
// origin when it is empty.
func NewKDSController(hub *kds.Hub, allowedOrigin string) *KDSController {
	return &KDSController{
		Hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "" || allowedOrigin == "*" {
					return true
				}
				origin := r.Header.Get("Origin")
				return origin == "" || origin == allowedOrigin
			},
		},
	}
}

// KDSHandler -> websocket endpoint for kitchen displays
func (kc *KDSController) KDSHandler(c *gin.Context) {
	role := c.GetString("role")
	if role != utils.RoleChef && role != utils.RoleStaff && role != utils.RoleAdmin {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	ws, err := kc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	kc.Hub.Register(ws, role)

	// displays only listen; reading detects the disconnect
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}
	kc.Hub.Unregister(ws)
}
