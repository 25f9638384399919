// Package msgs maps ROS type tags to the parsers of the built-in message
// catalog. Types that are not in the catalog decode to message.Raw.
package msgs

import (
	"sort"
	"sync"

	"github.com/morezero/rosbridge/pkg/message"
	"github.com/morezero/rosbridge/pkg/msgs/geometrymsgs"
	"github.com/morezero/rosbridge/pkg/msgs/stdmsgs"
)

var (
	mu      sync.RWMutex
	parsers = map[string]message.Parser{
		stdmsgs.TypeHeader: message.ParserFor(stdmsgs.DecodeHeader),
		stdmsgs.TypeString: message.ParserFor(stdmsgs.DecodeString),

		geometrymsgs.TypePoint:                     message.ParserFor(geometrymsgs.DecodePoint),
		geometrymsgs.TypeVector3:                   message.ParserFor(geometrymsgs.DecodeVector3),
		geometrymsgs.TypeQuaternion:                message.ParserFor(geometrymsgs.DecodeQuaternion),
		geometrymsgs.TypePose:                      message.ParserFor(geometrymsgs.DecodePose),
		geometrymsgs.TypePoseStamped:               message.ParserFor(geometrymsgs.DecodePoseStamped),
		geometrymsgs.TypePoseWithCovariance:        message.ParserFor(geometrymsgs.DecodePoseWithCovariance),
		geometrymsgs.TypePoseWithCovarianceStamped: message.ParserFor(geometrymsgs.DecodePoseWithCovarianceStamped),
		geometrymsgs.TypeTwist:                     message.ParserFor(geometrymsgs.DecodeTwist),
		geometrymsgs.TypeTwistWithCovariance:       message.ParserFor(geometrymsgs.DecodeTwistWithCovariance),
	}
)

// Register adds or replaces the parser for typeTag.
func Register(typeTag string, parser message.Parser) {
	mu.Lock()
	defer mu.Unlock()
	parsers[typeTag] = parser
}

// Known reports whether typeTag has a catalog parser.
func Known(typeTag string) bool {
	mu.RLock()
	defer mu.RUnlock()
	_, ok := parsers[typeTag]
	return ok
}

// Lookup returns the parser for typeTag, or a raw parser when the type is
// not in the catalog.
func Lookup(typeTag string) message.Parser {
	mu.RLock()
	p, ok := parsers[typeTag]
	mu.RUnlock()
	if ok {
		return p
	}
	return message.RawParser(typeTag)
}

// Types returns the catalog type tags in sorted order.
func Types() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(parsers))
	for t := range parsers {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
