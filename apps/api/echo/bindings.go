package echoapi

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

const (
	mimeApplicationPDF  = "application/pdf"
	mimeApplicationXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// attachment sends content as a file download named name.
func attachment(ctx echo.Context, name, contentType string, content []byte) error {
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return ctx.Blob(http.StatusOK, contentType, content)
}

// workbook sends the workbook written by export as a download named name.
func workbook(ctx echo.Context, name string, export func(w io.Writer) error) error {
	var buf bytes.Buffer
	if err := export(&buf); err != nil {
		return errors.Wrap(err, "exporting "+name)
	}
	return attachment(ctx, name, mimeApplicationXLSX, buf.Bytes())
}
