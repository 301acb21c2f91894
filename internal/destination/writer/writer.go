// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package writer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/mia-platform/sluice/internal/pipeline"
	"github.com/mia-platform/sluice/internal/record"
)

// PreviewRows is the number of rows printed for every batch.
const PreviewRows = 10

var _ pipeline.Printer = &Printer{}

// Printer writes a summary of every batch it receives.
type Printer struct {
	writer io.Writer

	lock sync.Mutex
}

// NewPrinter returns a Printer writing on w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{
		writer: w,
	}
}

// Print implements pipeline.Printer.
func (p *Printer) Print(_ context.Context, batch []record.Record) {
	builder := new(strings.Builder)
	builder.WriteString("Batch of " + strconv.Itoa(len(batch)) + " records:\n")

	encoder := json.NewEncoder(builder)
	for index, row := range batch[:min(len(batch), PreviewRows)] {
		builder.WriteString("\t" + strconv.Itoa(index) + ": ")
		if err := encoder.Encode(row); err != nil {
			builder.WriteString("<" + err.Error() + ">\n")
		}
	}

	if len(batch) > PreviewRows {
		builder.WriteString("\t... " + strconv.Itoa(len(batch)-PreviewRows) + " more\n")
	}
	builder.WriteString("\n")

	p.lock.Lock()
	defer p.lock.Unlock()
	fmt.Fprint(p.writer, builder.String())
}
