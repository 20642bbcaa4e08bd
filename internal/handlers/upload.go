package handlers

import (
	"errors"
	"io"

	"github.com/gofiber/fiber/v2"
)

var (
	errNoFile   = errors.New("file not found in form")
	errFileSize = errors.New("file size is invalid")
)

// readUpload reads a multipart file field fully. Files larger than max are
// rejected without reading the rest.
func readUpload(c *fiber.Ctx, field string, max int64) (string, []byte, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return "", nil, errNoFile
	}
	if fh.Size <= 0 || (max > 0 && fh.Size > max) {
		return fh.Filename, nil, errFileSize
	}
	f, err := fh.Open()
	if err != nil {
		return fh.Filename, nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, fh.Size+1))
	if err != nil {
		return fh.Filename, nil, err
	}
	return fh.Filename, data, nil
}
