package config

// migration is a pure function of the previous settings document that
// produces the next version's document. Each entry's index+1 is the
// version it upgrades *to*.
type migration func(map[string]any) map[string]any

// migrations holds every registered upgrade step in order, starting at
// version 1. There are none yet; videocatalogd launched at CurrentVersion.
var migrations []migration

// Migrate applies every migration after raw's declared version in order,
// returning the migrated document and its final version. Each step
// receives and returns a map, so a migration can return a shallow copy if
// it needs to change structure; the final "version" key is written into
// the returned map, which is raw itself when no step made a copy.
func Migrate(raw map[string]any) (map[string]any, int, error) {
	version := 0
	if v, ok := raw["version"]; ok {
		if vi, ok := toInt(v); ok {
			version = vi
		}
	}

	doc := raw
	for i := version; i < len(migrations); i++ {
		doc = migrations[i](doc)
	}

	final := version
	if len(migrations) > final {
		final = len(migrations)
	}
	doc["version"] = final
	return doc, final, nil
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
