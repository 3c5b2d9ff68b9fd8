package logger

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Field is one structured key/value pair.
type Field interface {
	AddTo(event *zerolog.Event)
	KeyValue() (string, any)
}

type stringField struct {
	key, value string
}

func (f stringField) AddTo(e *zerolog.Event)  { e.Str(f.key, f.value) }
func (f stringField) KeyValue() (string, any) { return f.key, f.value }

type int64Field struct {
	key   string
	value int64
}

func (f int64Field) AddTo(e *zerolog.Event)  { e.Int64(f.key, f.value) }
func (f int64Field) KeyValue() (string, any) { return f.key, f.value }

type floatField struct {
	key   string
	value float64
}

func (f floatField) AddTo(e *zerolog.Event)  { e.Float64(f.key, f.value) }
func (f floatField) KeyValue() (string, any) { return f.key, f.value }

type boolField struct {
	key   string
	value bool
}

func (f boolField) AddTo(e *zerolog.Event)  { e.Bool(f.key, f.value) }
func (f boolField) KeyValue() (string, any) { return f.key, f.value }

type timeField struct {
	key   string
	value time.Time
}

func (f timeField) AddTo(e *zerolog.Event)  { e.Time(f.key, f.value) }
func (f timeField) KeyValue() (string, any) { return f.key, f.value }

type errorField struct {
	err error
}

func (f errorField) AddTo(e *zerolog.Event) { e.Err(f.err) }
func (f errorField) KeyValue() (string, any) {
	if f.err == nil {
		return zerolog.ErrorFieldName, nil
	}
	return zerolog.ErrorFieldName, f.err.Error()
}

type anyField struct {
	key   string
	value any
}

func (f anyField) AddTo(e *zerolog.Event)  { e.Interface(f.key, f.value) }
func (f anyField) KeyValue() (string, any) { return f.key, f.value }

func String(key, value string) Field { return stringField{key, value} }

func Strings(key string, value []string) Field {
	return stringField{key, strings.Join(value, ", ")}
}

func Int(key string, value int) Field { return int64Field{key, int64(value)} }

func Int64(key string, value int64) Field { return int64Field{key, value} }

func Float64(key string, value float64) Field { return floatField{key, value} }

func Bool(key string, value bool) Field { return boolField{key, value} }

func Time(key string, value time.Time) Field { return timeField{key, value} }

// Duration logs d in milliseconds.
func Duration(key string, d time.Duration) Field {
	return int64Field{key, d.Milliseconds()}
}

func Error(err error) Field { return errorField{err} }

func Any(key string, value any) Field { return anyField{key, value} }
