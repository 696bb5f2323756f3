package ddl

import (
	"fmt"
	"strings"

	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/apperrors"
)

// Dialect selects the SQL flavor of generated statements.
type Dialect string

const (
	SQLServer Dialect = "sqlserver"
	Postgres  Dialect = "postgres"
)

// sqlServerMaxKeyChars keeps NVARCHAR key columns within the 900 byte
// clustered index key limit.
const sqlServerMaxKeyChars = 450

// ParseDialect accepts the dialect names used in configuration.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sqlserver", "mssql", "azuresql":
		return SQLServer, nil
	case "postgres", "postgresql", "pg":
		return Postgres, nil
	}
	return "", fmt.Errorf("%w: %q", apperrors.ErrUnsupportedDialect, s)
}

// MaxIdentifierLength is the longest identifier the dialect keeps intact.
// PostgreSQL silently truncates past 63 bytes.
func (d Dialect) MaxIdentifierLength() int {
	if d == Postgres {
		return 63
	}
	return 128
}

// Quote renders an identifier in the dialect's delimiters.
func (d Dialect) Quote(ident string) string {
	if d == Postgres {
		return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
	}
	return "[" + strings.ReplaceAll(ident, "]", "]]") + "]"
}

// ColumnType translates a mapped type. Key columns on SQL Server cannot be
// NVARCHAR(MAX) and are bounded instead.
func (d Dialect) ColumnType(sqlType string, isKey bool) string {
	upper := strings.ToUpper(strings.TrimSpace(sqlType))
	if d == SQLServer {
		if isKey && upper == "NVARCHAR(MAX)" {
			return fmt.Sprintf("NVARCHAR(%d)", sqlServerMaxKeyChars)
		}
		return upper
	}

	switch {
	case upper == "NVARCHAR(MAX)":
		return "TEXT"
	case strings.HasPrefix(upper, "NVARCHAR("):
		return "VARCHAR" + strings.TrimPrefix(upper, "NVARCHAR")
	case upper == "DATETIME2":
		return "TIMESTAMP"
	case upper == "BIT":
		return "BOOLEAN"
	case upper == "FLOAT":
		return "DOUBLE PRECISION"
	case upper == "UNIQUEIDENTIFIER":
		return "UUID"
	}
	return upper
}

// Identity renders the auto-increment clause placed after the type.
func (d Dialect) Identity() string {
	if d == Postgres {
		return "GENERATED BY DEFAULT AS IDENTITY"
	}
	return "IDENTITY(1,1)"
}
