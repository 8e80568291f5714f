package extract

import (
	"reflect"
	"testing"
)

func TestStatesInlineDefinition(t *testing.T) {
	content := "订单在生命周期中流转。\n\n订单状态：待支付、已支付、已发货、已完成\n"
	states := States(content)
	if len(states) != 1 {
		t.Fatalf("expected 1 state, got %d (%v)", len(states), states)
	}
	if states[0].Name != "订单状态" {
		t.Errorf("name = %q", states[0].Name)
	}
	want := []string{"待支付", "已支付", "已发货", "已完成"}
	if !reflect.DeepEqual(states[0].Values, want) {
		t.Errorf("values = %v, want %v", states[0].Values, want)
	}
}

func TestStatesInlineEnglishName(t *testing.T) {
	content := "OrderStatus: pending, shipped, cancelled\n"
	states := States(content)
	if len(states) != 1 {
		t.Fatalf("expected 1 state, got %d (%v)", len(states), states)
	}
	if states[0].Name != "OrderStatus" {
		t.Errorf("name = %q", states[0].Name)
	}
	want := []string{"pending", "shipped", "cancelled"}
	if !reflect.DeepEqual(states[0].Values, want) {
		t.Errorf("values = %v, want %v", states[0].Values, want)
	}
}

func TestStatesSectionWithBullets(t *testing.T) {
	content := `## 支付状态

- 未支付
- 支付中
- 已支付

## 其他章节

无关内容。
`
	states := States(content)
	if len(states) != 1 {
		t.Fatalf("expected 1 state, got %d (%v)", len(states), states)
	}
	if states[0].Name != "支付状态" {
		t.Errorf("name = %q", states[0].Name)
	}
	if !reflect.DeepEqual(states[0].Values, []string{"未支付", "支付中", "已支付"}) {
		t.Errorf("values = %v", states[0].Values)
	}
}

func TestStatesEnumPairs(t *testing.T) {
	content := "订单状态：待支付(PENDING)、已发货(SHIPPED)\n"
	states := States(content)
	if len(states) != 1 {
		t.Fatalf("expected 1 state, got %d", len(states))
	}
	s := states[0]
	if !reflect.DeepEqual(s.Values, []string{"待支付", "已发货"}) {
		t.Errorf("values = %v", s.Values)
	}
	if len(s.EnumPairs) != 2 || s.EnumPairs[0].Value != "PENDING" || s.EnumPairs[1].Value != "SHIPPED" {
		t.Errorf("enum pairs = %v", s.EnumPairs)
	}
}

func TestStatesFromTable(t *testing.T) {
	content := `| 状态名 | 枚举值 |
|--------|--------|
| 审核状态 | 待审核、已通过、已驳回 |
| 发货状态 | 备货中、已发出 |
`
	states := States(content)
	if len(states) != 2 {
		t.Fatalf("expected 2 states, got %d (%v)", len(states), states)
	}
	if states[0].Name != "审核状态" || len(states[0].Values) != 3 {
		t.Errorf("state[0] = %+v", states[0])
	}
	if states[1].Name != "发货状态" || len(states[1].Values) != 2 {
		t.Errorf("state[1] = %+v", states[1])
	}
}

func TestStatesDiscardsLongTokens(t *testing.T) {
	long := "这是一段非常长的说明文字用来验证超过三十个字符的值会被当作噪声丢弃掉不会进入结果"
	content := "订单状态：待支付、" + long + "、已完成\n"
	states := States(content)
	if len(states) != 1 {
		t.Fatalf("expected 1 state, got %d", len(states))
	}
	if !reflect.DeepEqual(states[0].Values, []string{"待支付", "已完成"}) {
		t.Errorf("values = %v", states[0].Values)
	}
}

func TestStatesDeduplicatesByName(t *testing.T) {
	content := "订单状态：a、b\n\n订单状态：c、d\n"
	states := States(content)
	if len(states) != 1 {
		t.Fatalf("expected 1 state, got %d", len(states))
	}
	if !reflect.DeepEqual(states[0].Values, []string{"a", "b"}) {
		t.Errorf("first definition should win, values = %v", states[0].Values)
	}
}

func TestTablesBasic(t *testing.T) {
	content := "### 用户表 (users)\n\n| 字段名 | 类型 | 必填 | 描述 |\n|--------|------|------|------|\n| id | BIGINT | 是 | 主键 |\n| email | VARCHAR(255) | 是 | 邮箱 |\n| bio | TEXT | 否 | 简介 |\n"
	tables := Tables(content)
	if len(tables) != 1 {
		t.Fatalf("expected 1 table, got %d", len(tables))
	}
	tb := tables[0]
	if tb.Name != "用户表 (users)" {
		t.Errorf("name = %q", tb.Name)
	}
	if len(tb.Fields) != 3 {
		t.Fatalf("fields = %d", len(tb.Fields))
	}
	if tb.Fields[0].Type != "bigint" || !tb.Fields[0].Required {
		t.Errorf("field[0] = %+v", tb.Fields[0])
	}
	if tb.Fields[1].Type != "string" || tb.Fields[1].Description != "邮箱" {
		t.Errorf("field[1] = %+v", tb.Fields[1])
	}
	if tb.Fields[2].Type != "text" || tb.Fields[2].Required {
		t.Errorf("field[2] = %+v", tb.Fields[2])
	}
}

func TestTablesEnglishHeaders(t *testing.T) {
	content := "## Orders (`orders`)\n\n| Field | Type | Required | Description |\n|---|---|---|---|\n| id | int | yes | primary key |\n| total | NUMBER(12,2) | no | order total |\n"
	tables := Tables(content)
	if len(tables) != 1 {
		t.Fatalf("expected 1 table, got %d", len(tables))
	}
	tb := tables[0]
	if tb.Name != "orders" {
		t.Errorf("backtick alias should win, name = %q", tb.Name)
	}
	if tb.Fields[1].Type != "decimal" {
		t.Errorf("NUMBER should normalize to decimal, got %q", tb.Fields[1].Type)
	}
	if !tb.Fields[0].Required || tb.Fields[1].Required {
		t.Errorf("required flags = %v, %v", tb.Fields[0].Required, tb.Fields[1].Required)
	}
}

func TestTablesIgnoresNonSchemaTables(t *testing.T) {
	content := "| 名称 | 数量 |\n|---|---|\n| 苹果 | 3 |\n"
	if tables := Tables(content); len(tables) != 0 {
		t.Fatalf("table without field/type headers must be skipped, got %v", tables)
	}
}

func TestCleanTableName(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"### 3.1 用户表", "用户表"},
		{"**订单表（orders）**", "订单表 (orders)"},
		{"`refunds`", "refunds"},
		{"表：商品表", "商品表"},
		{"Table: products", "products"},
	}
	for _, tt := range tests {
		if got := CleanTableName(tt.raw); got != tt.want {
			t.Errorf("CleanTableName(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
