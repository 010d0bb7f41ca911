package template

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// maxRepeat bounds generated text well above the largest datagram a test
// can usefully send.
const maxRepeat = 65536

var funcRegistry = map[string]func(args string) (string, error){
	"uuid":          fnUUID,
	"timestamp":     fnTimestamp,
	"timestamp_ms":  fnTimestampMs,
	"random":        fnRandom,
	"random_string": fnRandomString,
	"repeat":        fnRepeat,
	"date":          fnDate,
}

// evalFunction evaluates a built-in function call.
// The second result is false when expr is not a known function call.
func evalFunction(expr string) (string, bool, error) {
	parenIdx := strings.Index(expr, "(")
	if parenIdx == -1 || !strings.HasSuffix(expr, ")") {
		return "", false, nil
	}

	funcName := expr[:parenIdx]
	args := expr[parenIdx+1 : len(expr)-1]

	fn, ok := funcRegistry[funcName]
	if !ok {
		return "", false, nil
	}

	result, err := fn(args)
	if err != nil {
		return "", true, fmt.Errorf("function %s: %w", funcName, err)
	}
	return result, true, nil
}

// fnUUID generates a random (version 4) UUID.
func fnUUID(args string) (string, error) {
	if args != "" {
		return "", fmt.Errorf("uuid() takes no arguments")
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func fnTimestamp(args string) (string, error) {
	if args != "" {
		return "", fmt.Errorf("timestamp() takes no arguments")
	}
	return strconv.FormatInt(time.Now().Unix(), 10), nil
}

func fnTimestampMs(args string) (string, error) {
	if args != "" {
		return "", fmt.Errorf("timestamp_ms() takes no arguments")
	}
	return strconv.FormatInt(time.Now().UnixMilli(), 10), nil
}

// fnRandom generates a random integer between min and max (inclusive).
// Usage: random(min,max)
func fnRandom(args string) (string, error) {
	parts := strings.Split(args, ",")
	if len(parts) != 2 {
		return "", fmt.Errorf("random(min,max) requires exactly 2 arguments")
	}

	min, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid min value: %w", err)
	}

	max, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid max value: %w", err)
	}

	if min > max {
		return "", fmt.Errorf("min (%d) must be <= max (%d)", min, max)
	}

	n, err := rand.Int(rand.Reader, big.NewInt(max-min+1))
	if err != nil {
		return "", err
	}

	return strconv.FormatInt(min+n.Int64(), 10), nil
}

// fnRandomString generates a random alphanumeric string of the specified length.
// Usage: random_string(length)
func fnRandomString(args string) (string, error) {
	length, err := parseCount(args)
	if err != nil {
		return "", err
	}

	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}

	return string(result), nil
}

// fnRepeat repeats text count times. The count follows the last comma, so
// the text itself may contain commas.
// Usage: repeat(text,count)
func fnRepeat(args string) (string, error) {
	idx := strings.LastIndex(args, ",")
	if idx == -1 {
		return "", fmt.Errorf("repeat(text,count) requires 2 arguments")
	}
	text := args[:idx]
	if text == "" {
		return "", fmt.Errorf("text must not be empty")
	}
	count, err := parseCount(args[idx+1:])
	if err != nil {
		return "", err
	}
	if len(text)*count > maxRepeat {
		return "", fmt.Errorf("result must be <= %d bytes", maxRepeat)
	}
	return strings.Repeat(text, count), nil
}

// fnDate formats the current time using Go's reference layout.
// Usage: date(2006-01-02)
func fnDate(args string) (string, error) {
	format := strings.TrimSpace(args)
	if format == "" {
		format = time.RFC3339
	}
	return time.Now().Format(format), nil
}

func parseCount(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid length: %w", err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("length must be positive")
	}
	if n > maxRepeat {
		return 0, fmt.Errorf("length must be <= %d", maxRepeat)
	}
	return n, nil
}
