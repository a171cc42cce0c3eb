package model

import (
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/guregu/null/v6"
)

type DataType int

const (
	TypeString DataType = iota
	TypeFloat64
	TypeInt64
	TypeDate     // YYYY-MM-DD
	TypeDateTime // YYYY-MM-DD HH:MM:SS
)

type Column struct {
	Name string
	Type DataType
}

type TableMeta struct {
	TableName  string
	Columns    []Column
	OrderByKey []string
}

// ColumnNames 按声明顺序返回列名
func (t *TableMeta) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

func (t *TableMeta) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c.Name == name {
			return true
		}
	}
	return false
}

var (
	tableRegistry   []*TableMeta
	tableRegistryMu sync.Mutex

	timeType      = reflect.TypeOf(time.Time{})
	nullFloatType = reflect.TypeOf(null.Float{})
)

func registerTable(t *TableMeta) {
	tableRegistryMu.Lock()
	defer tableRegistryMu.Unlock()
	tableRegistry = append(tableRegistry, t)
}

// AllTables 返回当前所有已注册的表结构
func AllTables() []*TableMeta {
	tableRegistryMu.Lock()
	defer tableRegistryMu.Unlock()

	result := make([]*TableMeta, len(tableRegistry))
	copy(result, tableRegistry)
	return result
}

// SchemaFromStruct 通过反射生成 TableMeta 并自动注册
func SchemaFromStruct(tableName string, model interface{}, orderByKey []string) *TableMeta {
	t := reflect.TypeOf(model)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	var cols []Column

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		colName := field.Tag.Get("col")
		if colName == "" {
			colName = strings.ToLower(field.Name)
		}
		if colName == "-" {
			continue
		}

		var dType DataType
		customType := field.Tag.Get("type")
		switch {
		case customType == "date":
			dType = TypeDate
		case customType == "datetime":
			dType = TypeDateTime
		default:
			switch field.Type.Kind() {
			case reflect.String:
				dType = TypeString
			case reflect.Float64, reflect.Float32:
				dType = TypeFloat64
			case reflect.Int, reflect.Int64, reflect.Int32, reflect.Uint32:
				dType = TypeInt64
			case reflect.Struct:
				switch field.Type {
				case timeType:
					dType = TypeDateTime
				case nullFloatType:
					dType = TypeFloat64
				}
			default:
				dType = TypeString
			}
		}

		cols = append(cols, Column{Name: colName, Type: dType})
	}

	meta := &TableMeta{
		TableName:  tableName,
		Columns:    cols,
		OrderByKey: orderByKey,
	}

	registerTable(meta)

	return meta
}

// --- 表结构元数据 (TableMeta) ---

var TableBtcPrices = SchemaFromStruct(
	"raw_btc_prices",
	PricePoint{},
	[]string{"date"},
)

var TableCapital = SchemaFromStruct(
	"raw_capital_structure",
	CapitalStructureRecord{},
	[]string{"date"},
)

var TableFilings = SchemaFromStruct(
	"raw_filings",
	FilingRecord{},
	[]string{"date"},
)

var TableInstruments = SchemaFromStruct(
	"raw_instrument_notional",
	InstrumentNotional{},
	[]string{"instrument", "date"},
)

var TableMnav = SchemaFromStruct(
	"mnav_records",
	MnavRecord{},
	[]string{"date"},
)

var TableModels = SchemaFromStruct(
	"rainbow_models",
	FittedModel{},
	[]string{"run_id", "series"},
)
