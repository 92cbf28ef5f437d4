package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainagg "github.com/yungbote/fleetscore-backend/internal/domain/aggregates"
	"github.com/yungbote/fleetscore-backend/internal/pkg/ctxutil"
)

// ErrorBody is the "error" member of every non-2xx JSON response.
type ErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

type errorEnvelope struct {
	Error ErrorBody `json:"error"`
}

const codeInternal = "internal"

type statusCode struct {
	status int
	code   string
}

var byLedgerCode = map[domainagg.ErrorCode]statusCode{
	domainagg.CodeValidation:         {http.StatusBadRequest, string(domainagg.CodeValidation)},
	domainagg.CodeNotFound:           {http.StatusNotFound, string(domainagg.CodeNotFound)},
	domainagg.CodeDuplicateKey:       {http.StatusConflict, string(domainagg.CodeDuplicateKey)},
	domainagg.CodeConflict:           {http.StatusConflict, string(domainagg.CodeConflict)},
	domainagg.CodeInvariantViolation: {http.StatusInternalServerError, string(domainagg.CodeInvariantViolation)},
	domainagg.CodeStoreFailure:       {http.StatusServiceUnavailable, string(domainagg.CodeStoreFailure)},
}

// StatusFor maps a ledger error onto an HTTP status and a wire code. Missing rules
// and drivers get their own codes so clients can tell them apart.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domainagg.ErrRuleNotFound):
		return http.StatusNotFound, "rule_not_found"
	case errors.Is(err, domainagg.ErrDriverNotFound):
		return http.StatusNotFound, "driver_not_found"
	}
	if sc, ok := byLedgerCode[domainagg.CodeOf(err)]; ok {
		return sc.status, sc.code
	}
	return http.StatusInternalServerError, codeInternal
}

// Error writes err using its ledger code. Errors without a code are attached to the
// gin context for the request log and reported as a bare "internal error".
// A lost concurrent update carries Retry-After since the whole request may be resent.
func Error(c *gin.Context, err error) {
	status, code := StatusFor(err)
	if code == codeInternal {
		_ = c.Error(err)
		RespondError(c, status, code, errors.New("internal error"))
		return
	}
	if code == string(domainagg.CodeConflict) {
		c.Header("Retry-After", "1")
	}
	RespondError(c, status, code, err)
}

func RespondError(c *gin.Context, status int, code string, err error) {
	body := ErrorBody{Code: code, Message: "unknown error"}
	if err != nil {
		body.Message = err.Error()
	}
	if c.Request != nil {
		if td := ctxutil.GetTraceData(c.Request.Context()); td != nil {
			body.RequestID = td.RequestID
		}
	}
	c.AbortWithStatusJSON(status, errorEnvelope{Error: body})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}
