package templates

import "strings"

// Classify assigns a category to a template path. The first matching rule
// wins:
//
//	.bin                              -> Event4G
//	.gpb                              -> Event5G
//	.xml and NodeType=PCC|NodeType=PCG -> PMCounterCore
//	.xml and osscounterfile           -> PMCounterEBS
//	.xml                              -> PMCounter
//
// Anything else is Unknown.
func Classify(path string) Category {
	switch {
	case strings.Contains(path, ".bin"):
		return Event4G
	case strings.Contains(path, ".gpb"):
		return Event5G
	case strings.Contains(path, ".xml"):
		switch {
		case strings.Contains(path, "NodeType=PCC"), strings.Contains(path, "NodeType=PCG"):
			return PMCounterCore
		case strings.Contains(path, "osscounterfile"):
			return PMCounterEBS
		default:
			return PMCounter
		}
	default:
		return Unknown
	}
}
