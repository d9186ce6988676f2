package controller

// Options carries the configuration surface handed to a controller
// constructor. Keys are controller-defined; the manager itself only
// understands "update_rate".
type Options map[string]any

// OptionUpdateRate is the well-known option key for a controller's own
// update rate in Hz.
const OptionUpdateRate = "update_rate"

// Int returns the integer value for key, or def if the key is absent or
// not numeric. JSON and YAML decoding produce float64 and int values
// interchangeably, so both are accepted.
func (o Options) Int(key string, def int) int {
	v, ok := o[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return def
	}
}

// Float returns the float value for key, or def if the key is absent or
// not numeric.
func (o Options) Float(key string, def float64) float64 {
	v, ok := o[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return def
	}
}

// String returns the string value for key, or def if absent.
func (o Options) String(key, def string) string {
	if v, ok := o[key].(string); ok {
		return v
	}
	return def
}
