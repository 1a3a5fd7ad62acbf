package utils

// ToStringSlice converts a decoded JSON array (or a []string) into a []string,
// dropping non-string elements.
func ToStringSlice(v any) []string {
	stringSlice := make([]string, 0)
	switch slice := v.(type) {
	case []string:
		stringSlice = append(stringSlice, slice...)
	case []any:
		for _, e := range slice {
			if s, ok := e.(string); ok {
				stringSlice = append(stringSlice, s)
			}
		}
	}
	return stringSlice
}
