package cabi

var defaultLibraryNames = []string{
	"libleveldb.dylib",
	"libleveldb.1.dylib",
	"/opt/homebrew/lib/libleveldb.dylib",
	"/usr/local/lib/libleveldb.dylib",
}
