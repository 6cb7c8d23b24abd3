package kafka_client

import "time"

const (
	// KAFKA_TOPIC_PAGE_NAVIGATIONS carries one event per completed tab
	// navigation; the watcher derives invalidation and auto-scans from it.
	KAFKA_TOPIC_PAGE_NAVIGATIONS = "page-navigations"
)

const (
	MAX_RETRIES = 5
	RETRY_DELAY = 2 * time.Second
)
