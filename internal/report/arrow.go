package report

import (
	"fmt"
	"io"

	"bandwidth/internal/engine"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/ipc"
	"github.com/apache/arrow/go/v18/arrow/memory"
)

// ObservationSchema is the Arrow layout of exported observations.
var ObservationSchema = arrow.NewSchema([]arrow.Field{
	{Name: "country", Type: arrow.BinaryTypes.String},
	{Name: "country_code", Type: arrow.BinaryTypes.String},
	{Name: "year", Type: arrow.PrimitiveTypes.Int64},
	{Name: "value", Type: arrow.PrimitiveTypes.Float64},
}, nil)

// WriteArrow streams the column store as a single Arrow IPC record batch.
func WriteArrow(out io.Writer, cs *engine.ColumnStore) error {
	mem := memory.NewGoAllocator()

	b := array.NewRecordBuilder(mem, ObservationSchema)
	defer b.Release()

	countries := b.Field(0).(*array.StringBuilder)
	codes := b.Field(1).(*array.StringBuilder)
	countries.Reserve(cs.Len())
	codes.Reserve(cs.Len())
	for i := 0; i < cs.Len(); i++ {
		countries.Append(cs.Country(i))
		codes.Append(cs.Code(i))
	}
	b.Field(2).(*array.Int64Builder).AppendValues(cs.Years, nil)
	b.Field(3).(*array.Float64Builder).AppendValues(cs.Values, nil)

	rec := b.NewRecord()
	defer rec.Release()

	w := ipc.NewWriter(out, ipc.WithSchema(ObservationSchema), ipc.WithAllocator(mem))
	if err := w.Write(rec); err != nil {
		w.Close()
		return fmt.Errorf("write arrow record: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close arrow stream: %w", err)
	}
	return nil
}
