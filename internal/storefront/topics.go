package storefront

// TopicSessionEvents carries CartSynced and SessionCleared. One topic keeps both event
// types for a session on the same partition, in publish order.
const TopicSessionEvents = "storefront.session.events"

func PartitionKey(sessionID string) []byte { return []byte(sessionID) }
