// Package http wires the REST surface (rooms, uploads, finalize) and
// the signaling WebSocket endpoint.
package http

import (
	"context"
	"net/http"
	"slices"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/meetclone/backend/internal/adapters/signal"
	"github.com/meetclone/backend/internal/config"
	"github.com/meetclone/backend/internal/core"
	"github.com/meetclone/backend/internal/domain"
	"github.com/meetclone/backend/internal/recording"
)

func SetupRouter(ctx context.Context, cfg *config.Config, reg *core.Registry, store *recording.Store, finalizer *recording.Finalizer) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	r.Use(corsMiddleware(cfg.CORSOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	ctl := signal.NewController(reg, cfg.ReadLimit, cfg.PingPeriod)
	r.GET("/ws", func(c *gin.Context) {
		ctl.HandleSignal(ctx, c)
	})

	api := r.Group("/api")
	registerRoomRoutes(api, reg)
	registerRecordingRoutes(api, cfg, store, finalizer)

	log.Info().Str("module", "adapters.http").Msg("router setup")
	return r
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cc := cors.DefaultConfig()
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = origins
	}
	cc.AllowCredentials = !cc.AllowAllOrigins
	return cors.New(cc)
}

func registerRoomRoutes(api *gin.RouterGroup, reg *core.Registry) {
	// POST /api/rooms — mint a room id and make it listable.
	api.POST("/rooms", func(c *gin.Context) {
		id := domain.RoomID(uuid.NewString())
		reg.CreateRoom(id)
		c.JSON(http.StatusOK, gin.H{"roomId": id})
	})

	// GET /api/rooms — list rooms with member counts.
	api.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rooms": reg.Rooms()})
	})

	// GET /api/rooms/:id — current participants.
	api.GET("/rooms/:id", func(c *gin.Context) {
		id := domain.RoomID(c.Param("id"))
		participants, ok := reg.Participants(id)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"roomId": id, "participants": participants})
	})
}
