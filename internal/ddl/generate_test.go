package ddl

import (
	"strings"
	"testing"

	"inkwell/internal/models"
)

func sampleTable() *models.TableRecord {
	return &models.TableRecord{
		Name:        "users",
		Description: "用户主表",
		Fields: []models.FieldRecord{
			{Name: "id", Type: models.FieldTypeBigint, Required: true, PrimaryKey: true},
			{Name: "email", Type: models.FieldTypeString, Required: true, Description: "登录邮箱"},
			{Name: "profile", Type: models.FieldTypeJSON},
		},
	}
}

func TestGeneratePostgres(t *testing.T) {
	got := Generate(sampleTable(), Postgres)

	for _, want := range []string{
		`CREATE TABLE "users" (`,
		`"id" BIGINT NOT NULL PRIMARY KEY`,
		`"email" VARCHAR(255) NOT NULL  -- 登录邮箱`,
		`"profile" JSONB`,
		`COMMENT ON COLUMN "users"."email" IS '登录邮箱';`,
		`COMMENT ON TABLE "users" IS '用户主表';`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
	if strings.Contains(got, "ENGINE=InnoDB") {
		t.Error("postgres output has a mysql engine clause")
	}
}

func TestGenerateMySQL(t *testing.T) {
	got := Generate(sampleTable(), MySQL)

	for _, want := range []string{
		"CREATE TABLE `users` (",
		"`id` BIGINT NOT NULL PRIMARY KEY",
		"`profile` JSON",
		"ALTER TABLE `users` ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
	if strings.Contains(got, "COMMENT ON") {
		t.Error("mysql output has COMMENT statements")
	}
}

func TestGenerateOracleTypes(t *testing.T) {
	got := Generate(sampleTable(), Oracle)

	for _, want := range []string{
		`"id" NUMBER(19)`,
		`"email" VARCHAR2(255)`,
		`"profile" CLOB`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
}

func TestQuoteIdentifierSanitizes(t *testing.T) {
	table := &models.TableRecord{
		Name:   "用户表 (users)",
		Fields: []models.FieldRecord{{Name: "id", Type: models.FieldTypeInt}},
	}
	got := Generate(table, Postgres)
	if !strings.Contains(got, `CREATE TABLE "用户表__users_" (`) {
		t.Errorf("identifier not sanitized:\n%s", got)
	}
}

func TestEscapesSingleQuotes(t *testing.T) {
	table := sampleTable()
	table.Description = "user's table"
	got := Generate(table, Postgres)
	if !strings.Contains(got, `IS 'user''s table';`) {
		t.Errorf("quote not escaped:\n%s", got)
	}
}

func TestParseDialect(t *testing.T) {
	if _, err := ParseDialect("MySQL"); err != nil {
		t.Errorf("case-insensitive parse failed: %v", err)
	}
	if _, err := ParseDialect("mssql"); err == nil {
		t.Error("expected error for unknown dialect")
	}
}

func TestGenerateAllSeparatesTables(t *testing.T) {
	tables := []models.TableRecord{*sampleTable(), *sampleTable()}
	tables[1].Name = "orders"
	got := GenerateAll(tables, Postgres)
	if strings.Count(got, "CREATE TABLE") != 2 {
		t.Errorf("want two CREATE TABLE statements:\n%s", got)
	}
}
