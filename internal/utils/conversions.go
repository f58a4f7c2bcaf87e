package utils

// ToStringSlice keeps the non-empty string entries of a decoded JSON array.
// Claims such as "roles" may arrive as strings or objects depending on the backend version.
func ToStringSlice(slice []any) []string {
	stringSlice := make([]string, 0, len(slice))
	for _, v := range slice {
		if s, ok := v.(string); ok && s != "" {
			stringSlice = append(stringSlice, s)
		}
	}
	return stringSlice
}
