package notification

import (
	"regexp"
	"strconv"
	"strings"
)

// Record announces one published file to collectors.
type Record struct {
	ID           int64  `json:"id"`
	NodeName     string `json:"nodeName,omitempty"`
	DataType     string `json:"dataType,omitempty"`
	NodeType     string `json:"nodeType,omitempty"`
	FileLocation string `json:"fileLocation,omitempty"`
}

// Notice is a record before an id has been assigned.
type Notice struct {
	NodeName     string
	DataType     string
	NodeType     string
	FileLocation string
}

func (n Notice) record(id int64) Record {
	return Record{
		ID:           id,
		NodeName:     n.NodeName,
		DataType:     n.DataType,
		NodeType:     n.NodeType,
		FileLocation: n.FileLocation,
	}
}

var (
	dataTypePattern = regexp.MustCompile(`dataType==(.*?);`)
	nodeTypePattern = regexp.MustCompile(`nodeType==(.*?);`)
	idPattern       = regexp.MustCompile(`id=gt=(\d+)`)
)

// Filter selects records. Empty fields match everything.
type Filter struct {
	// DataType is matched against the whole record data type; '*' matches
	// any run of characters.
	DataType string

	// NodeType must equal the record node type exactly.
	NodeType string

	// AfterID keeps records with an id strictly greater than it.
	AfterID int64

	// Limit caps the number of results; zero means no cap.
	Limit int
}

// ParseFilter reads the query syntax used by file lookup clients:
//
//	dataType==PM_CELLTRACE*;nodeType==RadioNode;id=gt=1650000000000
//
// Each clause is optional. The dataType and nodeType clauses must be
// terminated by ';'. Unrecognised text is ignored.
func ParseFilter(s string) Filter {
	var f Filter
	if m := dataTypePattern.FindStringSubmatch(s); m != nil {
		f.DataType = m[1]
	}
	if m := nodeTypePattern.FindStringSubmatch(s); m != nil {
		f.NodeType = m[1]
	}
	if m := idPattern.FindStringSubmatch(s); m != nil {
		if id, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			f.AfterID = id
		}
	}
	return f
}

// Match reports whether r passes the filter. A record without a data type
// never matches a data type clause.
func (f Filter) Match(r Record) bool {
	if f.DataType != "" && (r.DataType == "" || !globMatch(f.DataType, r.DataType)) {
		return false
	}
	if f.NodeType != "" && f.NodeType != r.NodeType {
		return false
	}
	return r.ID > f.AfterID
}

// globMatch matches s against pattern where '*' stands for any run of
// characters, including none. Every other character is literal.
func globMatch(pattern, s string) bool {
	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return pattern == s
	}

	if !strings.HasPrefix(s, parts[0]) {
		return false
	}
	s = s[len(parts[0]):]

	last := parts[len(parts)-1]
	for _, part := range parts[1 : len(parts)-1] {
		i := strings.Index(s, part)
		if i < 0 {
			return false
		}
		s = s[i+len(part):]
	}
	return len(s) >= len(last) && strings.HasSuffix(s, last)
}
