// Package templates manages the fixed pool of template PM files that every
// published file is a symbolic link to.
//
// Templates are uploaded once at startup from a local directory into a "bin"
// area beneath the remote base directory. Each is classified into a Category
// by its path, and the Pool keeps them in upload order so that synthetic nodes
// can be assigned templates round-robin.
package templates
