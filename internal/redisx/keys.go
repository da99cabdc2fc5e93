package redisx

import "time"

const (
	// Cart mirror: cart:session:{session_id} -> last cart JSON seen from the backend
	KeyCartMirror = "cart:session:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Cleared session marker: cleared:session:{session_id}
	KeyClearedSession = "cleared:session:%s"
)

var (
	TTLDedup   = 48 * time.Hour
	TTLCleared = 48 * time.Hour
)
