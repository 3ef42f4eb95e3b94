package server

import (
	"net/http"

	"aviator/internal/api"
	"aviator/internal/game"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200 {object} api.HealthResponse
// @Router       /health [get]
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, api.HealthResponse{Status: "ok"})
}

// @Summary      Prometheus metrics
// @Description  Exposes Prometheus metrics in text format
// @Tags         system
// @Produce      text/plain
// @Success      200 {string} string
// @Router       /metrics [get]
func Metrics() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

// @Summary      Inspect a round, including its hidden seed
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        roundId path string true "Round ID"
// @Success      200 {object} game.Round
// @Failure      404 {object} api.ErrorResponse
// @Router       /admin/rounds/{roundId} [get]
func AdminGetRound(store game.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		round, err := store.GetRound(c.Request.Context(), c.Param("roundId"))
		if err != nil {
			if err == game.ErrRoundNotFound {
				c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "round not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load round"})
			return
		}

		c.JSON(http.StatusOK, round)
	}
}
