// Package naming implements the PM file naming convention used by the
// simulator: path and filename validation, the 15-minute ROP window stamp,
// and the two path rewrites applied during bootstrap and rotation.
//
// # Path Grammar
//
// A remote file path has the shape:
//
//	.../<FormatDir>/<NodeName>/<FileName>
//
// where FormatDir is one of FormatDirectories (case-insensitive) and the
// node name and file name are non-empty.
//
// # Filename Grammar
//
//	<A|B><digits>.<anything>_<rest><extension>
//
// The extension must be one of FileExtensions. For example:
//
//	A20220412.1600+0100-1615+0100_NR01gNodeBRadio0001_celltracefile_CUCP0_1_1.gpb.gz
//
// # ROP Window
//
// FormatWindow renders the reporting window that a file produced at a given
// instant belongs to. The window start is Ceil15(ref - 30m) and the window end
// is Ceil15(start + 1m); both are rendered with the UTC offset of the
// reference instant's location:
//
//	A20220101.0000+0000-0015+0000
//
// All functions in this package are pure and safe for concurrent use.
package naming
