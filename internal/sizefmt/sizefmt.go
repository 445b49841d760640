// Package sizefmt renders byte counts in human-scaled units for log output.
package sizefmt

import "fmt"

// units are the byte-scale unit names, smallest first. The scale steps by
// 1024 and clamps at the largest unit.
var units = []string{"bytes", "kilobytes", "megabytes", "gigabytes", "terabytes", "petabytes"}

// Bytes formats an exact byte count into a human-scaled string with
// two-decimal precision, e.g. "1.50 megabytes". Stored state always keeps
// exact byte counts; this is presentation only.
func Bytes(n uint64) string {
	value := float64(n)
	unit := 0
	for value >= 1024 && unit < len(units)-1 {
		value /= 1024
		unit++
	}
	return fmt.Sprintf("%.2f %s", value, units[unit])
}

// Delta formats a signed size change, prefixing growth with "+" so that log
// consumers can read direction without parsing both old and new sizes.
func Delta(d int64) string {
	if d < 0 {
		return "-" + Bytes(uint64(-d))
	}
	return "+" + Bytes(uint64(d))
}
