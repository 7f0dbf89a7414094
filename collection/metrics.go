package collection

import (
	"fmt"
	"io"

	vm "github.com/VictoriaMetrics/metrics"
)

const (
	opList       = "list"
	opGet        = "get"
	opCreate     = "create"
	opCreateMany = "create_many"
	opUpdate     = "update"
	opUpdateMany = "update_many"
	opDelete     = "delete"
)

var opMetrics = vm.NewSet()

func (a *Accessor) observe(op string, err *error) {
	labels := fmt.Sprintf(`{collection=%q,op=%q}`, a.name, op)
	opMetrics.GetOrCreateCounter("doccollection_operations_total" + labels).Inc()
	if *err != nil {
		opMetrics.GetOrCreateCounter("doccollection_operation_errors_total" + labels).Inc()
	}
}

// WritePrometheus writes the operation counters in Prometheus text format.
// Process metrics are included when process is set.
func WritePrometheus(w io.Writer, process bool) {
	opMetrics.WritePrometheus(w)
	if process {
		vm.WriteProcessMetrics(w)
	}
}
