// Package ddl renders waiting-area table records as CREATE TABLE
// statements. One-way: nothing here feeds back into the records.
package ddl

import (
	"fmt"
	"strings"

	"inkwell/internal/models"
)

// Dialect selects the SQL flavor to render.
type Dialect string

const (
	Postgres Dialect = "postgresql"
	MySQL    Dialect = "mysql"
	Oracle   Dialect = "oracle"
)

// ParseDialect validates a dialect name.
func ParseDialect(s string) (Dialect, error) {
	switch Dialect(strings.ToLower(s)) {
	case Postgres:
		return Postgres, nil
	case MySQL:
		return MySQL, nil
	case Oracle:
		return Oracle, nil
	default:
		return "", fmt.Errorf("unknown dialect %q (want postgresql, mysql or oracle)", s)
	}
}

// typeMap renders the canonical field vocabulary per dialect.
var typeMap = map[models.FieldType]map[Dialect]string{
	models.FieldTypeString:   {Postgres: "VARCHAR(255)", MySQL: "VARCHAR(255)", Oracle: "VARCHAR2(255)"},
	models.FieldTypeInt:      {Postgres: "INTEGER", MySQL: "INT", Oracle: "NUMBER(10)"},
	models.FieldTypeBigint:   {Postgres: "BIGINT", MySQL: "BIGINT", Oracle: "NUMBER(19)"},
	models.FieldTypeText:     {Postgres: "TEXT", MySQL: "TEXT", Oracle: "CLOB"},
	models.FieldTypeBoolean:  {Postgres: "BOOLEAN", MySQL: "TINYINT(1)", Oracle: "NUMBER(1)"},
	models.FieldTypeDatetime: {Postgres: "TIMESTAMP", MySQL: "DATETIME", Oracle: "TIMESTAMP"},
	models.FieldTypeJSON:     {Postgres: "JSONB", MySQL: "JSON", Oracle: "CLOB"},
	models.FieldTypeDecimal:  {Postgres: "NUMERIC(12,2)", MySQL: "DECIMAL(12,2)", Oracle: "NUMBER(12,2)"},
}

func mapType(t models.FieldType, dialect Dialect) string {
	if byDialect, ok := typeMap[t]; ok {
		if mapped, ok := byDialect[dialect]; ok {
			return mapped
		}
	}
	return string(t)
}

// quoteIdentifier sanitizes a name to word characters (CJK included)
// and wraps it in the dialect's quote style.
func quoteIdentifier(name string, dialect Dialect) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		case r >= 0x4e00 && r <= 0x9fff:
			return r
		default:
			return '_'
		}
	}, name)
	if dialect == MySQL {
		return "`" + cleaned + "`"
	}
	return `"` + cleaned + `"`
}

func columnDef(field *models.FieldRecord, dialect Dialect) string {
	var b strings.Builder
	b.WriteString("  ")
	b.WriteString(quoteIdentifier(field.Name, dialect))
	b.WriteString(" ")
	b.WriteString(mapType(field.Type, dialect))
	if field.Required {
		b.WriteString(" NOT NULL")
	}
	if field.PrimaryKey {
		b.WriteString(" PRIMARY KEY")
	}
	if field.Description != "" {
		b.WriteString("  -- " + field.Description)
	}
	return b.String()
}

// Generate renders one table record as DDL text. MySQL gets an engine
// clause; postgresql and oracle get COMMENT statements instead of
// inline comments only.
func Generate(table *models.TableRecord, dialect Dialect) string {
	tableName := quoteIdentifier(table.Name, dialect)
	var lines []string

	if table.Description != "" {
		lines = append(lines, "-- "+table.Description)
	}

	lines = append(lines, "CREATE TABLE "+tableName+" (")
	defs := make([]string, len(table.Fields))
	for i := range table.Fields {
		defs[i] = columnDef(&table.Fields[i], dialect)
	}
	lines = append(lines, strings.Join(defs, ",\n"))
	lines = append(lines, ");")

	if dialect == MySQL {
		lines = append(lines, "ALTER TABLE "+tableName+" ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;")
	}

	if dialect == Postgres || dialect == Oracle {
		for i := range table.Fields {
			f := &table.Fields[i]
			if f.Description == "" {
				continue
			}
			lines = append(lines, fmt.Sprintf("COMMENT ON COLUMN %s.%s IS '%s';",
				tableName, quoteIdentifier(f.Name, dialect), escapeSQLString(f.Description)))
		}
		if table.Description != "" {
			lines = append(lines, fmt.Sprintf("COMMENT ON TABLE %s IS '%s';",
				tableName, escapeSQLString(table.Description)))
		}
	}

	return strings.Join(lines, "\n")
}

// GenerateAll renders every table, blank-line separated.
func GenerateAll(tables []models.TableRecord, dialect Dialect) string {
	parts := make([]string, len(tables))
	for i := range tables {
		parts[i] = Generate(&tables[i], dialect)
	}
	return strings.Join(parts, "\n\n")
}

func escapeSQLString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
