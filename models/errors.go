package models

import "fmt"

// Error codes carried by ScrapeError.
const (
	ErrCodeTimeout     = "SCRAPE_TIMEOUT"
	ErrCodeNavigation  = "NAVIGATION_FAILED"
	ErrCodeFetch       = "FETCH_FAILED"
	ErrCodeExtraction  = "CONTENT_EXTRACTION_FAILED"
	ErrCodeBrowser     = "BROWSER_CRASH"
	ErrCodeSubprocess  = "SUBPROCESS_FAILED"
	ErrCodeTranslation = "TRANSLATION_FAILED"
	ErrCodeStorage     = "STORAGE_FAILED"
	ErrCodeConfig      = "CONFIG_INVALID"
)

// ScrapeError is the internal error type carrying an error code.
// It implements the error interface and supports wrapping via Unwrap.
type ScrapeError struct {
	Code    string
	Message string
	Err     error
}

func (e *ScrapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// NewScrapeError creates a new ScrapeError wrapping err.
func NewScrapeError(code, message string, err error) *ScrapeError {
	return &ScrapeError{Code: code, Message: message, Err: err}
}
