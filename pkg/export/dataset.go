package export

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Dataset defines tabular export content.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

var (
	timeType        = reflect.TypeOf(time.Time{})
	decimalType     = reflect.TypeOf(decimal.Decimal{})
	nullDecimalType = reflect.TypeOf(decimal.NullDecimal{})
)

// FromRows flattens report rows into a Dataset. rows must be a slice of
// structs, a pointer to a struct, or a slice of pointers to structs. Column
// names come from the json tags; untagged and "-" fields are skipped.
func FromRows(rows any) (Dataset, error) {
	v := reflect.ValueOf(rows)
	if !v.IsValid() {
		return Dataset{}, fmt.Errorf("export: nil rows")
	}
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return Dataset{}, fmt.Errorf("export: nil rows")
		}
		v = v.Elem()
	}

	var items []reflect.Value
	var elem reflect.Type
	switch v.Kind() {
	case reflect.Struct:
		items = []reflect.Value{v}
		elem = v.Type()
	case reflect.Slice, reflect.Array:
		elem = v.Type().Elem()
		if elem.Kind() == reflect.Pointer {
			elem = elem.Elem()
		}
		for i := 0; i < v.Len(); i++ {
			item := v.Index(i)
			if item.Kind() == reflect.Pointer {
				if item.IsNil() {
					continue
				}
				item = item.Elem()
			}
			items = append(items, item)
		}
	default:
		return Dataset{}, fmt.Errorf("export: unsupported rows of kind %s", v.Kind())
	}
	if elem.Kind() != reflect.Struct {
		return Dataset{}, fmt.Errorf("export: rows must be structs, got %s", elem.Kind())
	}

	columns := columnsOf(elem)
	data := Dataset{Headers: make([]string, len(columns)), Rows: make([]map[string]string, 0, len(items))}
	for i, col := range columns {
		data.Headers[i] = col.name
	}
	for _, item := range items {
		row := make(map[string]string, len(columns))
		for _, col := range columns {
			row[col.name] = format(item.FieldByIndex(col.index))
		}
		data.Rows = append(data.Rows, row)
	}
	return data, nil
}

type column struct {
	name  string
	index []int
}

func columnsOf(t reflect.Type) []column {
	var cols []column
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := strings.Split(f.Tag.Get("json"), ",")[0]
		if f.Anonymous && tag == "" && f.Type.Kind() == reflect.Struct {
			for _, nested := range columnsOf(f.Type) {
				cols = append(cols, column{name: nested.name, index: append([]int{i}, nested.index...)})
			}
			continue
		}
		if tag == "" || tag == "-" {
			continue
		}
		cols = append(cols, column{name: tag, index: []int{i}})
	}
	return cols
}

// format renders a single cell: money with two decimals, dates as
// YYYY-MM-DD, null values as empty strings.
func format(v reflect.Value) string {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return ""
		}
		v = v.Elem()
	}
	switch v.Type() {
	case decimalType:
		return v.Interface().(decimal.Decimal).StringFixed(2)
	case nullDecimalType:
		nd := v.Interface().(decimal.NullDecimal)
		if !nd.Valid {
			return ""
		}
		return nd.Decimal.StringFixed(2)
	case timeType:
		t := v.Interface().(time.Time)
		if t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02")
	}
	switch v.Kind() {
	case reflect.String:
		return v.String()
	case reflect.Bool:
		return strconv.FormatBool(v.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', -1, 64)
	default:
		return fmt.Sprint(v.Interface())
	}
}
