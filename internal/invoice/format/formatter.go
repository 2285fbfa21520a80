// Package format builds human-readable invoice numbers.
package format

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultPrefix = "INV"
	// SequenceWidth is the zero padding of the daily sequence.
	SequenceWidth = 4
)

// DayPrefix returns the part of the number shared by every invoice issued on
// the same UTC day, for example "INV-20260301-".
func DayPrefix(prefix string, issuedAt time.Time) string {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return prefix + "-" + issuedAt.UTC().Format("20060102") + "-"
}

// InvoiceNumber formats PREFIX-YYYYMMDD-NNNN. Sequences wider than four
// digits are kept as is.
func InvoiceNumber(prefix string, issuedAt time.Time, seq int64) (string, error) {
	if seq <= 0 {
		return "", fmt.Errorf("invalid invoice sequence: %d", seq)
	}
	return fmt.Sprintf("%s%0*d", DayPrefix(prefix, issuedAt), SequenceWidth, seq), nil
}
