package tools

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mark3labs/mcp-go/mcp"
	mssql "github.com/microsoft/go-mssqldb"

	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/apperrors"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/ddl"
)

// ErrorResponse represents a structured error in tool results.
// Returning it as a successful tool result keeps error details visible
// to the client instead of being swallowed by the MCP transport.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// NewErrorResult creates a tool result containing a structured error.
// Use this for errors the caller can act on (bad arguments, unknown ids).
// System failures should still return Go errors.
func NewErrorResult(code, message string) *mcp.CallToolResult {
	return NewErrorResultWithDetails(code, message, nil)
}

// NewErrorResultWithDetails creates an error result with additional context.
func NewErrorResultWithDetails(code, message string, details any) *mcp.CallToolResult {
	resp := ErrorResponse{
		Error:   true,
		Code:    code,
		Message: message,
		Details: details,
	}
	jsonBytes, _ := json.Marshal(resp)
	result := mcp.NewToolResultText(string(jsonBytes))
	result.IsError = true
	return result
}

// errorCodes maps caller-correctable errors to result codes.
var errorCodes = []struct {
	target error
	code   string
}{
	{apperrors.ErrNotFound, "assessment_not_found"},
	{apperrors.ErrInvalidConfig, "invalid_configuration"},
	{apperrors.ErrUnsupportedDialect, "unsupported_dialect"},
	{ddl.ErrUnsafeIdentifier, "invalid_identifier"},
	{ddl.ErrMultipleStatements, "invalid_statement"},
	{apperrors.ErrSourceUnavailable, "source_unavailable"},
}

// NewInputErrorResult converts err into an error result when the caller can
// correct it. It returns nil for system failures, which the handler should
// return as Go errors instead.
func NewInputErrorResult(err error) *mcp.CallToolResult {
	for _, c := range errorCodes {
		if errors.Is(err, c.target) {
			return NewErrorResult(c.code, err.Error())
		}
	}
	if code := SQLUserErrorCode(err); code != "" {
		return NewErrorResult(code, ExtractSQLErrorMessage(err))
	}
	return nil
}

// ============================================================================
// Target database errors
// ============================================================================

// sqlStateRegex matches PostgreSQL SQLSTATE codes in error messages like "(SQLSTATE 42601)"
var sqlStateRegex = regexp.MustCompile(`\(SQLSTATE ([0-9A-Z]{5})\)`)

// SQLUserErrorCode returns a code for a target rejecting a statement on its
// merits (syntax, duplicate object, bad reference). Connectivity and server
// failures return "".
func SQLUserErrorCode(err error) string {
	if err == nil {
		return ""
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return mapSQLStateToCode(pgErr.Code)
	}

	var msErr mssql.Error
	if errors.As(err, &msErr) {
		return mapSQLServerNumberToCode(msErr.Number)
	}

	if matches := sqlStateRegex.FindStringSubmatch(err.Error()); len(matches) >= 2 {
		return mapSQLStateToCode(matches[1])
	}

	return ""
}

// mapSQLStateToCode maps a PostgreSQL SQLSTATE to a result code.
func mapSQLStateToCode(sqlState string) string {
	switch sqlState {
	case "42601":
		return "syntax_error"
	case "42703":
		return "undefined_column"
	case "42P01":
		return "undefined_table"
	case "42P07":
		return "duplicate_table"
	case "42710":
		return "duplicate_object"
	case "42704":
		return "undefined_object"
	case "42830":
		return "invalid_foreign_key"
	case "42804":
		return "datatype_mismatch"
	case "42622":
		return "name_too_long"
	}

	if len(sqlState) >= 2 && sqlState[:2] == "42" {
		return "sql_error"
	}
	return ""
}

// mapSQLServerNumberToCode maps SQL Server error numbers to result codes.
func mapSQLServerNumberToCode(number int32) string {
	switch number {
	case 102, 156:
		return "syntax_error"
	case 207:
		return "undefined_column"
	case 208, 4902:
		return "undefined_table"
	case 2714:
		return "duplicate_object"
	case 1750, 1767, 1776:
		return "invalid_foreign_key"
	case 1919, 1946:
		return "invalid_key_column"
	case 1913:
		return "duplicate_object"
	case 103:
		return "name_too_long"
	}
	return ""
}

// ExtractSQLErrorMessage extracts a clean error message from a SQL error.
// Removes the "SQLSTATE XXXXX" suffix and any "ERROR: " prefix for cleaner display.
func ExtractSQLErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Message
	}

	var msErr mssql.Error
	if errors.As(err, &msErr) {
		return msErr.Message
	}

	msg := err.Error()
	if idx := strings.Index(msg, " (SQLSTATE"); idx != -1 {
		msg = msg[:idx]
	}
	return strings.TrimPrefix(msg, "ERROR: ")
}
