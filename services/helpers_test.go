package services

import (
	"io"

	"concierge-pipeline/utils"
)

func newTestLogger() *utils.Logger {
	return utils.NewLoggerWithOptions(io.Discard, "error", false)
}

func strPtr(s string) *string { return &s }
