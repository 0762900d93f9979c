// Package ops serves the optional HTTP endpoint used to check on a running
// countdown server.
package ops

import (
	"net/http"
	"strconv"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/luma/countdown/storage"
)

const ActiveCountdownsHeader = "X-Active-Countdowns"

// NewRouter returns a router with
//
//   GET /ping            -> pong
//   GET /countdowns      -> every running countdown, keyed by connection ID
//   GET /countdowns/:id  -> a single running countdown, or 404
//
func NewRouter(store storage.Store, debug bool, log *zap.Logger) *gin.Engine {
	gin.DisableConsoleColor()
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Logs all requests, like a combined access and error log, in RFC3339
	// UTC. Health checks are too noisy to keep.
	r.Use(ginzap.GinzapWithConfig(log, &ginzap.Config{
		TimeFormat: time.RFC3339,
		UTC:        true,
		SkipPaths:  []string{"/ping"},
	}))

	// Logs all panic to error log
	//   - stack means whether output the stack info.
	r.Use(ginzap.RecoveryWithZap(log, true))

	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	r.GET("/countdowns", func(c *gin.Context) {
		doc, err := store.Backup()
		if err != nil {
			log.Error("Failed to read countdowns", zap.Error(err))
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}

		c.Header(ActiveCountdownsHeader, strconv.Itoa(store.Len()))
		c.Data(http.StatusOK, "application/json; charset=utf-8", doc)
	})

	r.GET("/countdowns/:id", func(c *gin.Context) {
		countdown, err := store.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			log.Error("Failed to read countdown", zap.String("id", c.Param("id")), zap.Error(err))
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}

		if countdown == nil {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}

		c.Data(http.StatusOK, "application/json; charset=utf-8", countdown)
	})

	return r
}
