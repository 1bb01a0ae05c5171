package handlers

import (
	"errors"
	"net/http"

	"raffle/domain/entities"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Error codes returned in ErrorResponse.Error
const (
	CodeInvalidRequest    = "invalid_request"
	CodeInsufficientStake = "insufficient_stake"
	CodeRoundNotOpen      = "round_not_open"
	CodeIndexOutOfRange   = "index_out_of_range"
	CodeUpkeepNotReady    = "upkeep_not_ready"
	CodeUnknownRequest    = "unknown_request"
	CodeEmptyRandomWords  = "empty_random_words"
	CodePayoutFailed      = "payout_failed"
	CodeInternal          = "internal_error"
)

// errorCode maps a domain error onto an HTTP status and error code
func errorCode(err error) (int, string) {
	switch {
	case errors.Is(err, entities.ErrInsufficientStake):
		return http.StatusPaymentRequired, CodeInsufficientStake
	case errors.Is(err, entities.ErrRoundNotOpen):
		return http.StatusConflict, CodeRoundNotOpen
	case errors.Is(err, entities.ErrIndexOutOfRange):
		return http.StatusNotFound, CodeIndexOutOfRange
	case errors.Is(err, entities.ErrUpkeepNotReady):
		return http.StatusConflict, CodeUpkeepNotReady
	case errors.Is(err, entities.ErrUnknownRequest):
		return http.StatusNotFound, CodeUnknownRequest
	case errors.Is(err, entities.ErrEmptyRandomWords):
		return http.StatusBadRequest, CodeEmptyRandomWords
	case errors.Is(err, entities.ErrPayoutFailed):
		return http.StatusBadGateway, CodePayoutFailed
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

func respondError(c *gin.Context, err error) {
	status, code := errorCode(err)

	resp := ErrorResponse{Error: code, Message: err.Error()}
	var notReady *entities.UpkeepNotReadyError
	if errors.As(err, &notReady) {
		resp.Diagnostic = toDiagnosticResponse(notReady.Diagnostic)
	}

	if status >= http.StatusInternalServerError {
		log.WithError(err).WithFields(log.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).Error("Request failed")
		if status == http.StatusInternalServerError {
			resp.Message = "internal error"
		}
	}

	c.JSON(status, resp)
}

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: CodeInvalidRequest, Message: message})
}
