package game

// Nullable snapshot helpers. The wire contract uses JSON null for
// absent values (no host, no current turn, no last number), so
// snapshot structs carry pointers for those fields.

func nullableStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullableInt(n int) *int {
	if n == 0 {
		return nil
	}
	return &n
}
