package normalize

// Field helpers over decoded JSON payloads. Providers disagree on which
// fields exist and where, so every accessor tolerates missing keys and
// wrong types by returning the zero value.

func mapField(values map[string]any, key string) map[string]any {
	if values == nil {
		return nil
	}
	out, _ := values[key].(map[string]any)
	return out
}

func sliceField(values map[string]any, key string) []any {
	if values == nil {
		return nil
	}
	out, _ := values[key].([]any)
	return out
}

func stringField(values map[string]any, key string) string {
	if values == nil {
		return ""
	}
	out, _ := values[key].(string)
	return out
}

func intField(values map[string]any, key string) int {
	if values == nil {
		return 0
	}
	switch typed := values[key].(type) {
	case float64:
		return int(typed)
	case int:
		return typed
	case int64:
		return int(typed)
	}
	return 0
}

func mapAt(values []any, index int) map[string]any {
	if index < 0 || index >= len(values) {
		return nil
	}
	out, _ := values[index].(map[string]any)
	return out
}
