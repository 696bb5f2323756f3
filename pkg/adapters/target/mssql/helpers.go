package mssql

import (
	"net/url"
	"strings"
)

// driverFor picks the azuresql driver when the DSN asks for Azure AD
// service principal or managed identity authentication.
func driverFor(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "sqlserver"
	}
	for key, values := range u.Query() {
		if !strings.EqualFold(key, "fedauth") || len(values) == 0 {
			continue
		}
		// access tokens travel as the password on the plain driver
		if strings.EqualFold(values[0], "ActiveDirectoryAccessToken") {
			return "sqlserver"
		}
		return "azuresql"
	}
	return "sqlserver"
}
