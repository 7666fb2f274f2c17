package utils

// UniqueUint removes duplicate values from a slice of uints, keeping first-seen order.
func UniqueUint(slice []uint) []uint {
	seen := make(map[uint]struct{}, len(slice))
	list := make([]uint, 0, len(slice))
	for _, entry := range slice {
		if _, dup := seen[entry]; dup {
			continue
		}
		seen[entry] = struct{}{}
		list = append(list, entry)
	}
	return list
}
