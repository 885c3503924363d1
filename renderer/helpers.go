package renderer

import (
	"bytes"
	"io"

	"github.com/etnz/capgains"
	"github.com/shopspring/decimal"
)

// ConditionalBlock let you fully write a block and decide at the end to print it or not.
// If the block function returns true, the content is printed to w, otherwise it is discarded.
func ConditionalBlock(w io.Writer, block func(io.Writer) bool) {
	bw := &bytes.Buffer{}
	if block(bw) {
		io.Copy(w, bw)
	}
}

func percent(r decimal.Decimal) string { return capgains.Percent(r).String() }

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
