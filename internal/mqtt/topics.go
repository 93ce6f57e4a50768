package mqtt

import (
	"strings"
)

const (
	dataChannel    = "data"
	commandChannel = "cmd"
)

// DataTopicFilter matches the data channel of every device under prefix.
func DataTopicFilter(prefix string) string {
	return prefix + "/+/" + dataChannel
}

func DataTopic(prefix, deviceID string) string {
	return prefix + "/" + deviceID + "/" + dataChannel
}

func CommandTopic(prefix, deviceID string) string {
	return prefix + "/" + deviceID + "/" + commandChannel
}

// DeviceIDFromTopic returns the device segment of a <prefix>/<id>/data topic.
func DeviceIDFromTopic(prefix, topic string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, prefix+"/")
	if !ok {
		return "", false
	}
	id, channel, ok := strings.Cut(rest, "/")
	if !ok || id == "" || channel != dataChannel {
		return "", false
	}
	return id, true
}

// ValidDeviceID reports whether id can be used as a single topic segment.
func ValidDeviceID(id string) bool {
	return id != "" && !strings.ContainsAny(id, "/+#")
}
