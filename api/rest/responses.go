package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/aprclub/aprclub/server/ledger"
)

// respondLedgerError maps ledger error kinds to HTTP status codes.
// Ledger error text is user-facing and carries no internals, so it is
// passed through verbatim; anything unmapped stays a generic 500.
func respondLedgerError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ledger.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, ledger.ErrInvalidState),
		errors.Is(err, ledger.ErrAlreadyCheckedIn),
		errors.Is(err, ledger.ErrAlreadyClaimed),
		errors.Is(err, ledger.ErrContended):
		status = http.StatusConflict
	case errors.Is(err, ledger.ErrInvalidAmount):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
