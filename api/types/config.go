package types

import "time"

// JobConfiguration carries the process configuration down to the job workers.
// The jobs unmarshal from this map into whatever typed configuration they need.
type JobConfiguration map[string]any

func (jc JobConfiguration) GetString(key, def string) string {
	if v, ok := jc[key].(string); ok && v != "" {
		return v
	}
	return def
}

func (jc JobConfiguration) GetInt(key string, def int) int {
	if v, ok := jc[key].(int); ok {
		return v
	}
	return def
}

func (jc JobConfiguration) GetUint(key string, def uint) uint {
	if v, ok := jc[key].(uint); ok {
		return v
	}
	return def
}

func (jc JobConfiguration) GetBool(key string, def bool) bool {
	if v, ok := jc[key].(bool); ok {
		return v
	}
	return def
}

func (jc JobConfiguration) GetDuration(key string, def time.Duration) time.Duration {
	if v, ok := jc[key].(time.Duration); ok {
		return v
	}
	return def
}

func (jc JobConfiguration) GetStringSlice(key string, def []string) []string {
	if v, ok := jc[key].([]string); ok {
		return v
	}
	return def
}
