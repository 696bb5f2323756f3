package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeIdentifier(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{"camel case", "orderId", 128, "order_id"},
		{"trailing acronym", "customerID", 128, "customer_id"},
		{"leading acronym", "XMLHttpRequest", 128, "xml_http_request"},
		{"digit before capital", "version2Name", 128, "version2_name"},
		{"leading underscore", "_id", 128, "id"},
		{"spaces", "first name", 128, "first_name"},
		{"separator runs", "a--b__c", 128, "a_b_c"},
		{"trailing symbols", "Total $", 128, "total"},
		{"non ascii dropped", "café", 128, "caf"},
		{"leading digit", "2024sales", 128, "c_2024sales"},
		{"empty", "", 128, "col"},
		{"nothing usable", "日本", 128, "col"},
		{"truncated without trailing separator", "abcdef_ghij", 7, "abcdef"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeIdentifier(tt.input, tt.maxLen))
		})
	}
}

func TestChildTableName(t *testing.T) {
	tests := []struct {
		parent  string
		field   string
		isArray bool
		want    string
	}{
		{"orders", "lineItems", true, "orders_line_item"},
		{"orders", "address", false, "orders_address"},
		{"users", "addresses", true, "users_address"},
		{"products", "tags", true, "products_tag"},
		{"orders_item", "options", true, "orders_item_option"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, ChildTableName(tt.parent, tt.field, tt.isArray, 128))
		})
	}
}

func TestNamer_SuffixesCollisions(t *testing.T) {
	n := newNamer(128)
	n.reserve("id")

	assert.Equal(t, "id_2", n.unique("id"))
	assert.Equal(t, "name", n.unique("name"))
	assert.Equal(t, "name_2", n.unique("name"))
	assert.Equal(t, "name_3", n.unique("name"))
}

func TestNamer_SuffixFitsMaxLength(t *testing.T) {
	n := newNamer(6)
	assert.Equal(t, "abcdef", n.unique("abcdef"))
	assert.Equal(t, "abcd_2", n.unique("abcdef"))
}

func TestConstraintName(t *testing.T) {
	assert.Equal(t, "fk_orders_item_orders", constraintName("fk", 128, "orders_item", "orders"))
	assert.Equal(t, "ix_orders", constraintName("ix", 9, "orders", "customer_id"))
}
