// Package fs provides the filesystem seam used for dump files.
//
// Production code uses fs.Default (which is [LocalFS]). Tests can wrap it in a
// [FaultyFS] to simulate write, sync or close failures:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule(".dump", fs.Fault{FailAfterBytes: 1024})
//	err := fs.WriteAtomic(ffs, path, writeDump)
//
// [WriteAtomic] writes to a temporary sibling and renames it into place, so a
// failed dump never replaces a good one.
package fs
