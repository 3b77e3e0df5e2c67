package api

import (
	"net/http" // HTTP status codes
	"strconv"  // String conversion

	"lucky_lottery/internal/draw"

	"github.com/gin-gonic/gin" // Gin web framework
)

// DrawResultsHandler lists past draws, most recent first, with the prize table
func DrawResultsHandler(e *draw.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		prizes := gin.H{}
		for matched, prize := range e.Prizes() {
			prizes[strconv.Itoa(matched)] = prize
		}
		c.JSON(http.StatusOK, gin.H{"results": e.Results(), "prizes": prizes})
	}
}

// WinnersHandler lists winners, optionally of one draw
func WinnersHandler(e *draw.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"winners": e.Winners(c.Query("draw_id"))})
	}
}

// RunDrawHandler runs the daily draw immediately
func RunDrawHandler(e *draw.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := e.Run(c.Request.Context())
		if err != nil {
			respondError(c, err, "Draw")
			return
		}
		c.JSON(http.StatusCreated, gin.H{"result": result, "winners": e.Winners(result.ID)})
	}
}
