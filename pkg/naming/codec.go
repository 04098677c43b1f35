package naming

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	separator    = "/"
	delimiter    = "_"
	gzSuffix     = ".gz"
	nodeIndexLen = 4

	// DefaultNodeType is reported for paths that carry no NodeType= marker.
	DefaultNodeType = "RadioNode"
)

// FormatDirectories lists the directory names accepted as <FormatDir>.
var FormatDirectories = []string{"XML", "CELLTRACE", "CTUM", "UETRACE", "EBM", "EBSN", "EBSL"}

// FileExtensions lists the accepted file name suffixes.
var FileExtensions = []string{".gpb.gz", ".gpb", ".bin", ".bin.gz", ".xml", ".xml.gz"}

var (
	stampPattern    = regexp.MustCompile(`^[AB][0-9]*$`)
	nodeTypePattern = regexp.MustCompile(`NodeType=(\w+)`)
)

// ToSlash converts backslash separators to forward slashes.
func ToSlash(p string) string {
	return strings.ReplaceAll(p, `\`, separator)
}

// FileName returns the last segment of p.
func FileName(p string) string {
	p = ToSlash(p)
	if i := strings.LastIndex(p, separator); i >= 0 {
		return p[i+1:]
	}
	return p
}

// ParentDir returns p without its last segment, or "" when p has no separator.
func ParentDir(p string) string {
	p = ToSlash(p)
	if i := strings.LastIndex(p, separator); i >= 0 {
		return p[:i]
	}
	return ""
}

// NodeName returns the second-to-last segment of p, which holds the node name.
func NodeName(p string) string {
	parts := strings.Split(ToSlash(p), separator)
	if len(parts) < 2 {
		return ""
	}
	return parts[len(parts)-2]
}

// NodeType extracts the value of a NodeType=<word> marker in p.
// It returns DefaultNodeType when no marker is present.
func NodeType(p string) string {
	if m := nodeTypePattern.FindStringSubmatch(ToSlash(p)); m != nil {
		return m[1]
	}
	return DefaultNodeType
}

// ValidatePath checks that p ends in <FormatDir>/<NodeName>/<FileName>.
func ValidatePath(p string) error {
	p = ToSlash(p)
	if !strings.Contains(p, separator) {
		return pathError(p, "no directory separator")
	}

	parts := strings.Split(p, separator)
	if len(parts) < 3 {
		return pathError(p, "expected <format>/<node>/<file>")
	}

	n := len(parts)
	if parts[n-1] == "" {
		return pathError(p, "empty file name")
	}
	if parts[n-2] == "" {
		return pathError(p, "empty node name")
	}
	if !isFormatDirectory(parts[n-3]) {
		return pathError(p, fmt.Sprintf("unknown format directory %q", parts[n-3]))
	}

	return nil
}

// ValidateFileName checks the last segment of p against the naming convention.
func ValidateFileName(p string) error {
	name := FileName(p)

	stamp, rest, ok := strings.Cut(name, delimiter)
	if !ok {
		return fileNameError(p, "missing '_' delimiter")
	}

	lead, _, ok := strings.Cut(stamp, ".")
	if !ok {
		return fileNameError(p, "date stamp has no '.'")
	}
	if !stampPattern.MatchString(lead) {
		return fileNameError(p, fmt.Sprintf("date stamp %q must be A or B followed by digits", lead))
	}

	if !strings.Contains(rest, ".") {
		return fileNameError(p, "no extension after '_'")
	}
	for _, ext := range FileExtensions {
		if strings.HasSuffix(rest, ext) {
			return nil
		}
	}

	return fileNameError(p, "unsupported extension")
}

// Validate runs ValidatePath and ValidateFileName.
func Validate(p string) error {
	if err := ValidatePath(p); err != nil {
		return err
	}
	return ValidateFileName(p)
}

// UpdateFilePathWithNewDateTime replaces the date stamp of p with the ROP
// window for ref, keeping the directory and everything after the first '_'.
func UpdateFilePathWithNewDateTime(p string, ref time.Time) (string, error) {
	p = ToSlash(p)
	if err := Validate(p); err != nil {
		return "", err
	}

	name := FileName(p)
	_, rest, _ := strings.Cut(name, delimiter)
	if rest == "" {
		return "", fileNameError(p, "nothing after '_'")
	}

	return ParentDir(p) + separator + FormatWindow(name[0], ref) + delimiter + rest, nil
}

// RenameWithNewNodeAndDateTime derives the path of synthetic node index from
// the template at p. The node directory and the node name embedded in the file
// name are replaced by the node prefix plus a four-digit index, and the date
// stamp by the ROP window for ref:
//
//	<grandparent>/<node>/<window>_<node><ending><format>[.gz]
func RenameWithNewNodeAndDateTime(p string, ref time.Time, index int) (string, error) {
	p = ToSlash(p)
	if err := Validate(p); err != nil {
		return "", err
	}

	name := FileName(p)
	parent := ParentDir(p)
	grandparent := ParentDir(parent)
	node := FileName(parent)

	if len(node) < nodeIndexLen {
		return "", pathError(p, fmt.Sprintf("node name %q shorter than %d characters", node, nodeIndexLen))
	}
	newNode := fmt.Sprintf("%s%04d", node[:len(node)-nodeIndexLen], index)

	base := name
	compressed := strings.HasSuffix(name, gzSuffix)
	if compressed {
		base = strings.TrimSuffix(name, gzSuffix)
	}

	formatIdx := strings.LastIndex(base, ".")
	begin := strings.Index(name, delimiter) + 1 + len(node)
	if formatIdx < 0 || begin > formatIdx {
		return "", fileNameError(p, fmt.Sprintf("file name does not carry node name %q", node))
	}

	var sb strings.Builder
	sb.WriteString(grandparent)
	sb.WriteString(separator)
	sb.WriteString(newNode)
	sb.WriteString(separator)
	sb.WriteString(FormatWindow(name[0], ref))
	sb.WriteString(delimiter)
	sb.WriteString(newNode)
	sb.WriteString(base[begin:formatIdx])
	sb.WriteString(base[formatIdx:])
	if compressed {
		sb.WriteString(gzSuffix)
	}

	return sb.String(), nil
}

func isFormatDirectory(dir string) bool {
	for _, known := range FormatDirectories {
		if strings.EqualFold(dir, known) {
			return true
		}
	}
	return false
}
