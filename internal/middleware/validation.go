package middleware

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"
)

// Field length limits matching database schema constraints.
const (
	MaxUserIDLen   = 64   // questions.author_id / votes.user_id VARCHAR(64)
	MaxTextLen     = 2000 // hard ceiling; the moderation policy limit is lower
	MaxReasonLen   = 500  // moderation reason VARCHAR(500)
	MaxPageSize    = 100
	DefaultPerPage = 25
)

var (
	// userIDRe matches user IDs: hex SHA256 hashes (64 chars) or shorter hashed IDs.
	userIDRe = regexp.MustCompile(`^[0-9a-f]+$`)
)

// ErrorResponse is a helper that returns a standard API error response.
func ErrorResponse(c fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": message,
		},
	})
}

// ValidateUserID checks that a user ID is a valid hex hash.
func ValidateUserID(id string) (string, string) {
	id = strings.TrimSpace(strings.ToLower(id))
	if id == "" {
		return "", "userId is required"
	}
	if len(id) > MaxUserIDLen {
		return "", "userId must be at most 64 characters"
	}
	if !userIDRe.MatchString(id) {
		return "", "userId must be a hexadecimal hash"
	}
	return id, ""
}

// ValidateQuestionText trims the text and enforces the hard length ceiling.
// Policy-level limits (blocklist, configured max) are applied in the service.
func ValidateQuestionText(text string) (string, string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", "text is required"
	}
	if len(text) > MaxTextLen {
		return "", "text must be at most 2000 characters"
	}
	return text, ""
}

// ValidateReason trims and truncates a moderation reason.
func ValidateReason(reason string) string {
	reason = strings.TrimSpace(reason)
	if len(reason) > MaxReasonLen {
		reason = reason[:MaxReasonLen]
	}
	return reason
}

// ParseID parses a positive int64 path or query parameter.
func ParseID(raw string) (int64, string) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, "id must be a positive integer"
	}
	return id, ""
}

// ParsePagination reads page/pageSize query values with defaults and caps.
func ParsePagination(c fiber.Ctx) (page, pageSize int) {
	page, _ = strconv.Atoi(c.Query("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ = strconv.Atoi(c.Query("pageSize", strconv.Itoa(DefaultPerPage)))
	if pageSize < 1 {
		pageSize = DefaultPerPage
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}
