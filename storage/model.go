package storage

import (
	"reflect"
	"sync"

	pluralize "github.com/gertd/go-pluralize"
	"github.com/iancoleman/strcase"
)

var (
	pluralizer = pluralize.NewClient()
	modelNames sync.Map
)

// Namer allows models to override the table name derived from their type.
type Namer interface {
	TableName() string
}

// TableName returns a pluralized, snake cased name for the model's type,
// unless the model implements Namer. *Account becomes "accounts".
func TableName(m any) string {
	if n, ok := m.(Namer); ok {
		return n.TableName()
	}
	t := reflect.TypeOf(m)
	for t.Kind() == reflect.Ptr || t.Kind() == reflect.Slice {
		t = t.Elem()
	}
	if n, ok := modelNames.Load(t); ok {
		return n.(string)
	}
	n := pluralizer.Plural(strcase.ToSnake(t.Name()))
	modelNames.Store(t, n)
	return n
}
