package ddl

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/apperrors"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/models"
)

const sharedAddressID = "ss_0123456789abcdef"

func sharedAddress() models.SharedSchema {
	return models.SharedSchema{
		SchemaID:   sharedAddressID,
		SchemaName: "address",
		Columns: []models.ColumnMapping{
			{SourcePath: "address.city", Name: "city", SQLType: "NVARCHAR(50)", Nullable: true},
			{SourcePath: "address.zip", Name: "zip", SQLType: "NVARCHAR(10)", Nullable: true},
		},
		UsageCount:       2,
		SourceContainers: []string{"customers", "orders"},
	}
}

func addressChild(parent string) models.ChildTableMapping {
	return models.ChildTableMapping{
		SourcePath:       "address",
		TableName:        parent + "_address",
		ParentTable:      parent,
		ParentKeyColumn:  parent + "_id",
		ParentKeyColumns: []string{parent + "_id"},
		PrimaryKey:       []string{parent + "_id"},
		Relationship:     models.RelationshipOneToOne,
		SharedSchemaID:   sharedAddressID,
		Columns: []models.ColumnMapping{
			{Name: parent + "_id", SQLType: "NVARCHAR(MAX)", IsPrimaryKey: true, IsSynthetic: true},
		},
	}
}

func testAssessment() *models.Assessment {
	customers := &models.ContainerMapping{
		Container:  "customers",
		TableName:  "customers",
		PrimaryKey: []string{"id"},
		Columns: []models.ColumnMapping{
			{SourcePath: "id", Name: "id", SQLType: "NVARCHAR(MAX)", IsPrimaryKey: true},
			{SourcePath: "email", Name: "email", SQLType: "NVARCHAR(100)"},
			{SourcePath: "active", Name: "active", SQLType: "BIT", Nullable: true},
		},
		ChildTables: []models.ChildTableMapping{addressChild("customers")},
		ForeignKeys: []models.ForeignKeyConstraint{{
			Name:              "fk_customers_address_customers",
			Table:             "customers_address",
			Columns:           []string{"customers_id"},
			ReferencedTable:   "customers",
			ReferencedColumns: []string{"id"},
			OnDelete:          "CASCADE",
		}},
		UniqueConstraints: []models.UniqueConstraint{{
			Name:      "uq_customers_email",
			Table:     "customers",
			Columns:   []string{"email"},
			SourceKey: "email",
		}},
		Indexes: []models.IndexRecommendation{{
			Name:    "ix_customers_active",
			Table:   "customers",
			Columns: []string{"active"},
			Reason:  "frequent filter",
		}},
	}

	orders := &models.ContainerMapping{
		Container:  "orders",
		TableName:  "orders",
		PrimaryKey: []string{"orders_id"},
		Columns: []models.ColumnMapping{
			{Name: "orders_id", SQLType: "BIGINT", IsPrimaryKey: true, IsIdentity: true, IsSynthetic: true},
			{SourcePath: "placed", Name: "placed", SQLType: "DATETIME2"},
			{SourcePath: "total", Name: "total", SQLType: "FLOAT", Nullable: true},
		},
		ChildTables: []models.ChildTableMapping{
			addressChild("orders"),
			{
				SourcePath:   "tags",
				TableName:    "orders_tag",
				ParentTable:  "orders",
				PrimaryKey:   []string{"value"},
				Relationship: models.RelationshipManyToMany,
				IsArray:      true,
				Columns: []models.ColumnMapping{
					{SourcePath: "tags[]", Name: "value", SQLType: "NVARCHAR(20)", IsPrimaryKey: true},
				},
			},
		},
		LinkingTables: []models.LinkingTableRecommendation{{
			Name:            "orders_orders_tag",
			SourcePath:      "tags",
			ParentTable:     "orders",
			ChildTable:      "orders_tag",
			ParentKeyColumn: "parent_orders_id",
			ChildKeyColumn:  "child_value",
		}},
	}

	return &models.Assessment{
		Containers: []models.ContainerAssessment{
			{Container: "customers", Status: models.StatusCompleted, Mapping: customers},
			{Container: "orders", Status: models.StatusCompleted, Mapping: orders},
			{Container: "broken", Status: models.StatusFailed},
		},
		SharedSchemas: []models.SharedSchema{sharedAddress()},
	}
}

func statementFor(t *testing.T, s *Script, object string) Statement {
	t.Helper()
	for _, st := range s.Statements {
		if st.Object == object {
			return st
		}
	}
	t.Fatalf("no statement for %s", object)
	return Statement{}
}

func TestGenerate_StatementOrder(t *testing.T) {
	script, err := Generate(testAssessment(), SQLServer)
	require.NoError(t, err)

	var objects []string
	var kinds []StatementKind
	for _, st := range script.Statements {
		objects = append(objects, st.Object)
		kinds = append(kinds, st.Kind)
	}
	assert.Equal(t, []string{
		"customers", "customers_address", "orders", "orders_address", "orders_tag", "orders_orders_tag",
		"uq_customers_email",
		"fk_customers_address_customers", "fk_orders_orders_tag_orders", "fk_orders_orders_tag_orders_tag",
		"ix_customers_active",
	}, objects)
	assert.Equal(t, KindTable, kinds[0])
	assert.Equal(t, KindIndex, kinds[len(kinds)-1])
}

func TestGenerate_SQLServer(t *testing.T) {
	script, err := Generate(testAssessment(), SQLServer)
	require.NoError(t, err)

	customers := statementFor(t, script, "customers")
	assert.Equal(t, "CREATE TABLE [customers] (\n"+
		"    [id] NVARCHAR(450) NOT NULL,\n"+
		"    [email] NVARCHAR(100) NOT NULL,\n"+
		"    [active] BIT NULL,\n"+
		"    CONSTRAINT [pk_customers] PRIMARY KEY ([id])\n"+
		")", customers.SQL)
	assert.Equal(t, "container customers", customers.Comment)

	orders := statementFor(t, script, "orders")
	assert.Contains(t, orders.SQL, "[orders_id] BIGINT IDENTITY(1,1) NOT NULL")
	assert.Contains(t, orders.SQL, "[placed] DATETIME2 NOT NULL")

	fk := statementFor(t, script, "fk_customers_address_customers")
	assert.Equal(t, "ALTER TABLE [customers_address] ADD CONSTRAINT [fk_customers_address_customers] "+
		"FOREIGN KEY ([customers_id]) REFERENCES [customers] ([id]) ON DELETE CASCADE", fk.SQL)

	ix := statementFor(t, script, "ix_customers_active")
	assert.Equal(t, "CREATE INDEX [ix_customers_active] ON [customers] ([active])", ix.SQL)
	assert.Equal(t, "frequent filter", ix.Comment)

	uq := statementFor(t, script, "uq_customers_email")
	assert.Equal(t, "ALTER TABLE [customers] ADD CONSTRAINT [uq_customers_email] UNIQUE ([email])", uq.SQL)
}

func TestGenerate_Postgres(t *testing.T) {
	script, err := Generate(testAssessment(), Postgres)
	require.NoError(t, err)

	customers := statementFor(t, script, "customers")
	assert.Contains(t, customers.SQL, `"id" TEXT NOT NULL`)
	assert.Contains(t, customers.SQL, `"email" VARCHAR(100) NOT NULL`)
	assert.Contains(t, customers.SQL, `"active" BOOLEAN NULL`)

	orders := statementFor(t, script, "orders")
	assert.Contains(t, orders.SQL, `"orders_id" BIGINT GENERATED BY DEFAULT AS IDENTITY NOT NULL`)
	assert.Contains(t, orders.SQL, `"placed" TIMESTAMP NOT NULL`)
	assert.Contains(t, orders.SQL, `"total" DOUBLE PRECISION NULL`)
}

func TestGenerate_SharedSchemaChildResolvesColumns(t *testing.T) {
	script, err := Generate(testAssessment(), SQLServer)
	require.NoError(t, err)

	for _, table := range []string{"customers_address", "orders_address"} {
		st := statementFor(t, script, table)
		assert.Contains(t, st.SQL, "[city] NVARCHAR(50) NULL")
		assert.Contains(t, st.SQL, "[zip] NVARCHAR(10) NULL")
		assert.Contains(t, st.Comment, "shared structure address "+sharedAddressID)
	}
}

func TestGenerate_LinkingTable(t *testing.T) {
	script, err := Generate(testAssessment(), SQLServer)
	require.NoError(t, err)

	link := statementFor(t, script, "orders_orders_tag")
	assert.Equal(t, "CREATE TABLE [orders_orders_tag] (\n"+
		"    [parent_orders_id] BIGINT NOT NULL,\n"+
		"    [child_value] NVARCHAR(20) NOT NULL,\n"+
		"    CONSTRAINT [pk_orders_orders_tag] PRIMARY KEY ([parent_orders_id], [child_value])\n"+
		")", link.SQL)
	assert.Contains(t, link.Comment, "many_to_many")

	fk := statementFor(t, script, "fk_orders_orders_tag_orders_tag")
	assert.Contains(t, fk.SQL, "FOREIGN KEY ([child_value]) REFERENCES [orders_tag] ([value]) ON DELETE CASCADE")
}

func TestGenerate_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(a *models.Assessment)
		dialect Dialect
		wantErr error
	}{
		{
			name:    "unsupported dialect",
			mutate:  func(a *models.Assessment) {},
			dialect: "oracle",
			wantErr: apperrors.ErrUnsupportedDialect,
		},
		{
			name: "unsafe column name",
			mutate: func(a *models.Assessment) {
				a.Containers[0].Mapping.Columns[1].Name = "email; DROP TABLE x"
			},
			dialect: SQLServer,
			wantErr: ErrUnsafeIdentifier,
		},
		{
			name: "identifier too long for postgres",
			mutate: func(a *models.Assessment) {
				a.Containers[0].Mapping.Indexes[0].Name = "ix_" + strings.Repeat("a", 70)
			},
			dialect: Postgres,
			wantErr: ErrUnsafeIdentifier,
		},
		{
			name: "duplicate table",
			mutate: func(a *models.Assessment) {
				a.Containers[1].Mapping.TableName = "customers"
			},
			dialect: SQLServer,
			wantErr: ErrUnsafeIdentifier,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := testAssessment()
			tt.mutate(a)
			_, err := Generate(a, tt.dialect)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestGenerate_LongIdentifierFitsSQLServer(t *testing.T) {
	a := testAssessment()
	a.Containers[0].Mapping.Indexes[0].Name = "ix_" + strings.Repeat("a", 70)

	_, err := Generate(a, SQLServer)
	assert.NoError(t, err)
}

func TestGenerate_Empty(t *testing.T) {
	script, err := Generate(&models.Assessment{}, Postgres)
	require.NoError(t, err)
	assert.Empty(t, script.Statements)
	assert.Empty(t, script.String())
}

func TestScript_String(t *testing.T) {
	s := &Script{Statements: []Statement{
		{Kind: KindTable, Object: "a", Comment: "container a", SQL: "CREATE TABLE [a] ([x] INT NOT NULL)"},
		{Kind: KindIndex, Object: "ix_a", SQL: "CREATE INDEX [ix_a] ON [a] ([x])"},
	}}
	assert.Equal(t, "-- container a\nCREATE TABLE [a] ([x] INT NOT NULL);\n\nCREATE INDEX [ix_a] ON [a] ([x]);\n", s.String())
	assert.Equal(t, []string{"CREATE TABLE [a] ([x] INT NOT NULL)", "CREATE INDEX [ix_a] ON [a] ([x])"}, s.SQL())
}

func TestParseDialect(t *testing.T) {
	tests := []struct {
		input string
		want  Dialect
	}{
		{"sqlserver", SQLServer},
		{"MSSQL", SQLServer},
		{"azuresql", SQLServer},
		{"postgres", Postgres},
		{" PostgreSQL ", Postgres},
		{"pg", Postgres},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDialect(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseDialect("mysql")
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedDialect)
}

func TestDialect_ColumnType(t *testing.T) {
	tests := []struct {
		dialect Dialect
		sqlType string
		isKey   bool
		want    string
	}{
		{SQLServer, "NVARCHAR(MAX)", false, "NVARCHAR(MAX)"},
		{SQLServer, "NVARCHAR(MAX)", true, "NVARCHAR(450)"},
		{SQLServer, "nvarchar(50)", true, "NVARCHAR(50)"},
		{Postgres, "NVARCHAR(MAX)", true, "TEXT"},
		{Postgres, "NVARCHAR(255)", false, "VARCHAR(255)"},
		{Postgres, "BIT", false, "BOOLEAN"},
		{Postgres, "UNIQUEIDENTIFIER", false, "UUID"},
		{Postgres, "INT", false, "INT"},
	}
	for _, tt := range tests {
		t.Run(string(tt.dialect)+"/"+tt.sqlType, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.dialect.ColumnType(tt.sqlType, tt.isKey))
		})
	}
}

func TestDialect_Quote(t *testing.T) {
	assert.Equal(t, "[a]]b]", SQLServer.Quote("a]b"))
	assert.Equal(t, `"a""b"`, Postgres.Quote(`a"b`))
}

func TestValidateStatement(t *testing.T) {
	tests := []struct {
		name    string
		stmt    string
		wantErr bool
	}{
		{"plain", "CREATE TABLE [a] ([x] INT)", false},
		{"semicolon in literal", "COMMENT ON TABLE a IS 'x; y'", false},
		{"semicolon in bracket", "CREATE TABLE [a;b] ([x] INT)", false},
		{"semicolon in double quotes", `CREATE TABLE "a;b" ("x" INT)`, false},
		{"trailing statement", "CREATE TABLE [a] ([x] INT); DROP TABLE [b]", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStatement(tt.stmt)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMultipleStatements)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidateIdentifier(t *testing.T) {
	assert.NoError(t, ValidateIdentifier("order_line_item", SQLServer))
	assert.NoError(t, ValidateIdentifier("_hidden2", Postgres))

	for _, bad := range []string{"", "Orders", "2nd", "a-b", "a b", "x'--"} {
		assert.ErrorIs(t, ValidateIdentifier(bad, SQLServer), ErrUnsafeIdentifier, bad)
	}
}
