// Package parsing turns raw model responses into typed line item rows.
package parsing

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "embed"

	"github.com/xeipuuv/gojsonschema"

	"github.com/jonathan/receipt-buddy/internal/types"
)

//go:embed line_items.schema.json
var lineItemsSchemaJSON string

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func lineItemsSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(
			gojsonschema.NewStringLoader(lineItemsSchemaJSON))
	})
	return schema, schemaErr
}

// ParseRows validates a raw model response and converts it into rows.
// The fallback date is attached uniformly to every row. One malformed
// entry invalidates the whole response: either all rows come back, or
// none do.
//
// Rows are returned in sorted item-name order so output is
// deterministic regardless of JSON map iteration.
func ParseRows(raw string, date time.Time) ([]types.Row, error) {
	clean := stripFences(raw)

	s, err := lineItemsSchema()
	if err != nil {
		return nil, fmt.Errorf("failed to compile line items schema: %w", err)
	}
	result, err := s.Validate(gojsonschema.NewStringLoader(clean))
	if err != nil {
		return nil, &ResponseError{Message: "response is not valid JSON", Cause: err}
	}
	if !result.Valid() {
		first := result.Errors()[0]
		return nil, &ResponseError{
			Message: fmt.Sprintf("%s: %s", first.Field(), first.Description()),
		}
	}

	var entries map[string]map[string]any
	dec := json.NewDecoder(strings.NewReader(clean))
	dec.UseNumber()
	if err := dec.Decode(&entries); err != nil {
		return nil, &ResponseError{Message: "response is not an item map", Cause: err}
	}

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([]types.Row, 0, len(entries))
	for _, name := range names {
		fields := entries[name]

		qv, ok := fields["quantity"]
		if !ok {
			return nil, &RowError{Item: name, Field: "quantity"}
		}
		pv, ok := fields["price"]
		if !ok {
			return nil, &RowError{Item: name, Field: "price"}
		}

		quantity, err := toInt(qv)
		if err != nil {
			return nil, &ResponseError{
				Message: fmt.Sprintf("line item %q has an unusable quantity", name),
				Cause:   err,
			}
		}
		price, err := toFloat(pv)
		if err != nil {
			return nil, &ResponseError{
				Message: fmt.Sprintf("line item %q has an unusable price", name),
				Cause:   err,
			}
		}

		// Division by zero is defined, not an error: a zero-quantity
		// line (deposit refunds, weight-priced items) gets 0.0.
		perUnit := 0.0
		if quantity > 0 {
			perUnit = price / float64(quantity)
		}

		rows = append(rows, types.Row{
			Item:         name,
			Quantity:     quantity,
			Price:        price,
			PricePerUnit: perUnit,
			Date:         date,
		})
	}
	return rows, nil
}

// stripFences removes markdown code fence wrappers. The model likes to
// couch its JSON in ```json blocks even when told not to.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")

	// Skip a language identifier on the opening fence line.
	if idx := strings.Index(text, "\n"); idx >= 0 {
		firstLine := strings.TrimSpace(text[:idx])
		if len(firstLine) < 20 && !strings.Contains(firstLine, "{") {
			text = text[idx+1:]
		}
	}

	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

// toFloat coerces a decoded JSON value to a float, accepting either
// "." or "," as the decimal separator in string values.
func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case json.Number:
		return x.Float64()
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(x), ",", ".")
		return strconv.ParseFloat(s, 64)
	default:
		return 0, fmt.Errorf("unsupported numeric value %v", v)
	}
}

// toInt coerces a decoded JSON value to an integer, truncating
// fractional values the way the transcription occasionally produces
// them ("2.0" units).
func toInt(v any) (int, error) {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return int(i), nil
		}
		f, err := x.Float64()
		if err != nil {
			return 0, err
		}
		return int(f), nil
	case string:
		s := strings.TrimSpace(x)
		if i, err := strconv.Atoi(s); err == nil {
			return i, nil
		}
		f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
		if err != nil {
			return 0, err
		}
		return int(f), nil
	default:
		return 0, fmt.Errorf("unsupported numeric value %v", v)
	}
}
