package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/schoolrecords/sf10/core"
	"github.com/schoolrecords/sf10/core/grade"
	"github.com/schoolrecords/sf10/core/printreq"
	"github.com/schoolrecords/sf10/core/report"
	"github.com/schoolrecords/sf10/core/student"
	"github.com/schoolrecords/sf10/core/user"
)

var (
	errUnauthorized       = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAccountDeactivated = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired     = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden      = echo.NewHTTPError(http.StatusForbidden, "permission denied")

	renderFailedMsg = "The SF10 could not be rendered. Please try again."

	// status codes of the domain errors
	errorCodes = map[error]int{
		user.ErrNotFound:           http.StatusNotFound,
		student.ErrNotFound:        http.StatusNotFound,
		grade.ErrNotFound:          http.StatusNotFound,
		printreq.ErrNotFound:       http.StatusNotFound,
		user.ErrInvalidCredentials: http.StatusBadRequest,
		user.ErrInactive:           http.StatusForbidden,
		core.ErrForbidden:          http.StatusForbidden,
		core.ErrUnauthenticated:    http.StatusUnauthorized,
		report.ErrInProgress:       http.StatusConflict,
	}
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		logServerError := func(msg string) {
			logger.Error(msg, errors.Wrap(err, msg), sessionFromContext(ctx))
		}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		case *report.RenderError:
			code = http.StatusInternalServerError
			message = renderFailedMsg
			logServerError(renderFailedMsg)
		default:
			if c, ok := errorCode(origErr); ok {
				code = c
				message = origErr.Error()
				break
			}

			// any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg
			logServerError(msg)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

func errorCode(err error) (int, bool) {
	for e, code := range errorCodes {
		if err == e {
			return code, true
		}
	}
	return 0, false
}
