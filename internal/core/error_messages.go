package core

// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support reference.
// When users encounter errors, they can quote the error code to support staff
// for faster diagnosis.
//
// Error codes are grouped by category:
//
// # Sheet Errors (SHEET001-SHEET099)
//
//	SHEET001 - Empty sheet: The spreadsheet has no data rows
//	           Patterns: "sheet has no data rows"
//	SHEET002 - Unsupported format: Only .xlsx and .csv files are accepted
//	           Patterns: "unsupported file format"
//	SHEET003 - Invalid CSV: File is not a valid CSV
//	           Patterns: "invalid csv"
//	SHEET004 - Unreadable workbook: The workbook could not be opened
//	           Patterns: "open xlsx", "workbook has no sheets"
//	SHEET005 - No file: No file was selected
//	           Patterns: "no file provided"
//	SHEET006 - File too large: File exceeds the upload size limit
//	           Patterns: "file too large", "request body too large"
//	SHEET007 - Bad file name: A table name cannot be derived from the file name
//	           Patterns: "cannot derive a table name"
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Invalid UUID        Patterns: "invalid uuid"
//	VAL002 - Invalid number      Patterns: "invalid integer", "invalid float",
//	                             "invalid double precision", "invalid decimal",
//	                             "invalid numeric"
//
// # Session Errors (SES001-SES099)
//
//	SES001 - Session not found   Patterns: "session not found"
//	SES002 - Session expired     Patterns: "session expired"
//	SES003 - Missing session id  Patterns: "session id is required"
//	SES004 - Insert in progress  Patterns: "already being inserted"
//	SES005 - Nothing to insert   Patterns: "no valid rows"
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key        Patterns: "duplicate key"
//	DB002 - Unique constraint    Patterns: "unique constraint", "violates unique"
//	DB003 - Foreign key          Patterns: "foreign key constraint", "violates foreign key"
//	DB004 - Connection refused   Patterns: "connection refused"
//	DB005 - Connection reset     Patterns: "connection reset"
//	DB006 - Timeout              Patterns: "timeout"
//	DB007 - Deadlock             Patterns: "deadlock"
//	DB008 - Type mismatch        Patterns: "out of range", "invalid input syntax"
//
// # Upload Errors (UPL001-UPL099)
//
//	UPL002 - System busy         Patterns: "too many uploads"
//	UPL004 - Request cancelled   Patterns: "context canceled"
//	UPL005 - Request timeout     Patterns: "context deadline exceeded"
//
// # Rate Limiting (RATE001-RATE099)
//
//	RATE001 - Rate limited       Patterns: "rate limit"
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Malformed body      Patterns: "invalid request body"
//
// # Default Error (ERR000)
//
// Fallback when no specific pattern matches. Support staff should check
// application logs for the original technical error.
//
// Error patterns are matched case-insensitively using strings.Contains.
// The first matching pattern wins, so more specific patterns are listed
// before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var (
	msgInvalidNumber = UserMessage{
		Message: "A value is not a valid number",
		Action:  "Remove currency symbols and use standard decimal format",
		Code:    "VAL002",
	}
	msgBadWorkbook = UserMessage{
		Message: "The workbook could not be read",
		Action:  "Re-save the file as .xlsx and upload it again",
		Code:    "SHEET004",
	}
	msgTooLarge = UserMessage{
		Message: "File exceeds the upload size limit",
		Action:  "Split the file into smaller chunks",
		Code:    "SHEET006",
	}
	msgTypeMismatch = UserMessage{
		Message: "A value does not fit its column type",
		Action:  "Check the column types and the values in the failing column",
		Code:    "DB008",
	}
)

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// Order matters: the first match wins.
var errorPatterns = []errorPattern{
	// Sheet errors.
	{
		pattern: "sheet has no data rows",
		msg: UserMessage{
			Message: "Excel is empty",
			Action:  "Upload a spreadsheet with a header row and at least one data row",
			Code:    "SHEET001",
		},
	},
	{
		pattern: "unsupported file format",
		msg: UserMessage{
			Message: "Unsupported file format",
			Action:  "Upload an .xlsx or .csv file",
			Code:    "SHEET002",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Ensure file is comma-separated with consistent quoting",
			Code:    "SHEET003",
		},
	},
	{pattern: "open xlsx", msg: msgBadWorkbook},
	{pattern: "workbook has no sheets", msg: msgBadWorkbook},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a spreadsheet to upload",
			Code:    "SHEET005",
		},
	},
	{pattern: "file too large", msg: msgTooLarge},
	{pattern: "request body too large", msg: msgTooLarge},
	{
		pattern: "cannot derive a table name",
		msg: UserMessage{
			Message: "The file name cannot be used as a table name",
			Action:  "Rename the file to start with a letter or digit",
			Code:    "SHEET007",
		},
	},

	// Validation errors.
	{
		pattern: "invalid uuid",
		msg: UserMessage{
			Message: "A value is not a valid UUID",
			Action:  "Download the invalid records and correct the UUID column",
			Code:    "VAL001",
		},
	},
	{pattern: "invalid integer", msg: msgInvalidNumber},
	{pattern: "invalid float", msg: msgInvalidNumber},
	{pattern: "invalid double precision", msg: msgInvalidNumber},
	{pattern: "invalid decimal", msg: msgInvalidNumber},
	{pattern: "invalid numeric", msg: msgInvalidNumber},

	// Session errors.
	{
		pattern: "session not found",
		msg: UserMessage{
			Message: "Validation session not found",
			Action:  "Validate the file again before inserting",
			Code:    "SES001",
		},
	},
	{
		pattern: "session expired",
		msg: UserMessage{
			Message: "Validation session expired",
			Action:  "Validate the file again before inserting",
			Code:    "SES002",
		},
	},
	{
		pattern: "session id is required",
		msg: UserMessage{
			Message: "No validation session was given",
			Action:  "Validate a file first",
			Code:    "SES003",
		},
	},
	{
		pattern: "already being inserted",
		msg: UserMessage{
			Message: "This batch is already being inserted",
			Action:  "Wait for the running insert to finish",
			Code:    "SES004",
		},
	},
	{
		pattern: "no valid rows",
		msg: UserMessage{
			Message: "There are no valid rows to insert",
			Action:  "Fix the invalid records and validate again",
			Code:    "SES005",
		},
	},

	// Database constraint errors.
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this ID already exists",
			Action:  "Download failed rows to review duplicates",
			Code:    "DB001",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "This value must be unique but already exists",
			Action:  "Check for duplicate entries in your file",
			Code:    "DB002",
		},
	},
	{
		pattern: "violates unique",
		msg: UserMessage{
			Message: "A duplicate value was found",
			Action:  "Review your data for duplicate key values",
			Code:    "DB002",
		},
	},
	{
		pattern: "foreign key constraint",
		msg: UserMessage{
			Message: "Referenced record does not exist",
			Action:  "Ensure parent records are uploaded first",
			Code:    "DB003",
		},
	},
	{
		pattern: "violates foreign key",
		msg: UserMessage{
			Message: "Referenced record does not exist",
			Action:  "Ensure parent records are uploaded first",
			Code:    "DB003",
		},
	},

	// Database connection errors.
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try uploading a smaller file or try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},
	{pattern: "out of range", msg: msgTypeMismatch},
	{pattern: "invalid input syntax", msg: msgTypeMismatch},

	// Upload errors.
	{
		pattern: "too many uploads",
		msg: UserMessage{
			Message: "System is busy processing other uploads",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try uploading a smaller file or check your connection",
			Code:    "UPL005",
		},
	},

	{
		pattern: "invalid request body",
		msg: UserMessage{
			Message: "The request body could not be read",
			Action:  "Send a JSON object with the expected fields",
			Code:    "REQ001",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It searches through known error patterns (case-insensitive) and returns
// the first match. If no pattern matches, a generic fallback message with
// code ERR000 is returned.
//
// Example:
//
//	msg := MapError(session.ErrExpired)
//	// msg.Code == "SES002"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	msg := MapError(err)
	return msg.Code != defaultMessage.Code
}

// UserError wraps a technical error with a user-friendly message.
// The original error is preserved for logging.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError creates a UserError by mapping a technical error to a
// user-friendly message. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
