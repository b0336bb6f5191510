package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/Bezalel011/Smartcare/services"
	"github.com/gin-gonic/gin"
)

// Clock returns the clinic's current calendar day.
type Clock func() time.Time

// requireFacility reads facility_id from the query string and answers 400
// when it is missing.
func requireFacility(c *gin.Context) (string, bool) {
	id := c.Query("facility_id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "facility_id is required"})
		return "", false
	}
	return id, true
}

func respondError(c *gin.Context, op string, err error) {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "field": verr.Field})
		return
	}
	log.Printf("%s failed: path=%s err=%v", op, c.FullPath(), err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": op + " failed"})
}
