package commsutil

import (
	"strings"
)

// DefaultSubjectPrefix is the root of every relayed subject.
const DefaultSubjectPrefix = "ros"

// BuildTopicSubject maps a ROS topic onto a COMMS subject under prefix:
// "/robot/pose" becomes "ros.robot.pose". Characters that are not valid in
// a subject token are replaced with "_".
func BuildTopicSubject(prefix, topic string) string {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	parts := strings.Split(strings.Trim(topic, "/"), "/")
	tokens := make([]string, 0, len(parts)+1)
	tokens = append(tokens, prefix)
	for _, p := range parts {
		if p == "" {
			continue
		}
		tokens = append(tokens, sanitizeToken(p))
	}
	return strings.Join(tokens, ".")
}

// BuildStatusSubject builds the subject for gateway status envelopes.
func BuildStatusSubject(prefix string) string {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return prefix + "._status"
}

func sanitizeToken(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, s)
}
