package console

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrinterPlainOutput(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf)

	p.Step("Downloading %s", "bill.pdf")
	p.Success("Saved")
	p.Failure("Error: %v", "boom")
	p.Notice("AGENT PAUSED")
	p.Field("Current URL", "https://acme.test")

	assert.Equal(t,
		"→ Downloading bill.pdf\n✓ Saved\n✗ Error: boom\n\n! AGENT PAUSED\n  Current URL: https://acme.test\n",
		buf.String())
}

func TestNilPrinterIsSilent(t *testing.T) {
	var p *Printer
	p.Step("nothing")
	p.Notice("nothing")
	p.Field("a", "b")
}
