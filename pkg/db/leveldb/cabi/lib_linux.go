package cabi

var defaultLibraryNames = []string{
	"libleveldb.so",
	"libleveldb.so.1",
}
