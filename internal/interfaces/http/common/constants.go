package common

import "time"

const (
	// MaxJSONBody limits JSON request bodies.
	MaxJSONBody = 1 << 20
	// MaxMultipartMemory is kept in memory while parsing multipart forms; the rest spills to disk.
	MaxMultipartMemory = 32 << 20
	// PhotoFieldPrefix prefixes multipart file fields, e.g. photo_soft_floor.
	PhotoFieldPrefix = "photo_"
	// DefaultPageLimit applies when a list request sets no limit.
	DefaultPageLimit = 50
	// MaxPageLimit caps list requests.
	MaxPageLimit = 500
	// RequestTimeout bounds store work per request unless the handler is configured otherwise.
	RequestTimeout = 10 * time.Second
)
