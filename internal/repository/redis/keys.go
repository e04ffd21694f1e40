package redis

import "fmt"

const ns = "slotsale:v1"

func KeySlotMap() string {
	return ns + ":slots:map"
}

func KeySlotCounts() string {
	return ns + ":slots:counts"
}

func KeyRateLimit(scope, id string) string {
	return fmt.Sprintf("%s:rl:%s:%s", ns, scope, id)
}

func ChannelSlotsChanged() string {
	return ns + ":slots:changed"
}
