package types

// JSONMap stores an arbitrary JSON object. Columns use gorm's json serializer.
type JSONMap map[string]any

// Clone returns a shallow copy so callers cannot mutate shared metadata.
func (j JSONMap) Clone() JSONMap {
	if j == nil {
		return nil
	}
	out := make(JSONMap, len(j))
	for k, v := range j {
		out[k] = v
	}
	return out
}
