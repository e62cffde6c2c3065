package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lookbusy1344/plc-emulator/datatable"
	"github.com/lookbusy1344/plc-emulator/vm"
)

// valueSource resolves a numeric operand at scan time
type valueSource func(*vm.Context) float64

// boolAddr validates that a token is a boolean address and returns its
// canonical form.
func boolAddr(token string) (string, error) {
	addr := strings.ToUpper(strings.TrimSpace(token))
	domain, err := datatable.AddressDomain(addr)
	if err != nil {
		return "", err
	}
	if domain != datatable.DomainBool {
		return "", fmt.Errorf("%s is not a boolean address", addr)
	}
	return addr, nil
}

// wordAddr validates that a token is a word address
func wordAddr(token string) (string, error) {
	addr := strings.ToUpper(strings.TrimSpace(token))
	domain, err := datatable.AddressDomain(addr)
	if err != nil {
		return "", err
	}
	if domain != datatable.DomainWord {
		return "", fmt.Errorf("%s is not a word address", addr)
	}
	return addr, nil
}

// anyAddr validates that a token is some valid address
func anyAddr(token string) (string, error) {
	addr := strings.ToUpper(strings.TrimSpace(token))
	if !datatable.ValidAddress(addr) {
		return "", fmt.Errorf("invalid address %q", token)
	}
	return addr, nil
}

// parseLiteral recognizes decimal integers, decimal floats and hex
// literals ending in h (1Fh).
func parseLiteral(token string) (float64, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, false
	}

	lower := strings.ToLower(token)
	if strings.HasSuffix(lower, "h") && len(lower) > 1 {
		if v, err := strconv.ParseInt(lower[:len(lower)-1], 16, 64); err == nil {
			return float64(v), true
		}
		return 0, false
	}

	if v, err := strconv.ParseFloat(token, 64); err == nil {
		return v, true
	}
	return 0, false
}

// numericOperand resolves a token that may be a numeric literal, a hex
// literal ending in h, or a word/float address fetched at scan time.
func numericOperand(token string) (valueSource, error) {
	if v, ok := parseLiteral(token); ok {
		return func(*vm.Context) float64 { return v }, nil
	}

	addr := strings.ToUpper(strings.TrimSpace(token))
	domain, err := datatable.AddressDomain(addr)
	if err != nil {
		return nil, fmt.Errorf("operand %q is neither a number nor an address", token)
	}
	switch domain {
	case datatable.DomainWord:
		return func(ctx *vm.Context) float64 { return float64(ctx.Table.Word(addr)) }, nil
	case datatable.DomainFloat:
		return func(ctx *vm.Context) float64 { return ctx.Table.Float(addr) }, nil
	default:
		return nil, fmt.Errorf("operand %s must be a word or float address", addr)
	}
}

// anyValueOperand resolves a token that may be a quoted string, a
// numeric literal or any address fetched at scan time. Used by COPY
// and FILL sources.
func anyValueOperand(token string) (func(*vm.Context) any, error) {
	token = strings.TrimSpace(token)

	if len(token) >= 2 && strings.HasPrefix(token, `"`) && strings.HasSuffix(token, `"`) {
		s := token[1 : len(token)-1]
		return func(*vm.Context) any { return s }, nil
	}

	if v, ok := parseLiteral(token); ok {
		return func(*vm.Context) any { return v }, nil
	}

	addr := strings.ToUpper(token)
	if !datatable.ValidAddress(addr) {
		return nil, fmt.Errorf("operand %q is neither a literal nor an address", token)
	}
	return func(ctx *vm.Context) any { return ctx.Table.Value(addr) }, nil
}

// timeUnitScale maps the optional timer unit parameter to a
// milliseconds multiplier.
var timeUnitScale = map[string]float64{
	"ms":   1,
	"sec":  1000,
	"min":  60 * 1000,
	"hour": 60 * 60 * 1000,
	"day":  24 * 60 * 60 * 1000,
}
