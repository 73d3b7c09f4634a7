// Package dupetrie finds groups of files with identical content.
//
// Files are compared block by block. Each file is streamed into a content
// trie whose edges are labelled with block hashes, and it only descends as
// far as needed to tell it apart from the files already in the trie. Files
// that differ in their first block are read exactly one block; only files
// that turn out to be equal are read to the end.
//
// # Core API
//
// The main entry point is Scanner, which selects candidate files and groups
// them:
//
//	filterCfg := dupetrie.DefaultFilterConfig()
//	filterCfg.Include = []string{"/srv/photos"}
//	filterCfg.ScanLevel = 10
//
//	scanner, err := dupetrie.NewScanner(filterCfg, dupetrie.DefaultScanConfig())
//	if err != nil {
//		return err
//	}
//	groups, err := scanner.FindEqualFileGroups(nil)
//	for _, group := range groups {
//		fmt.Printf("%d bytes: %v\n", group.Size, group.Files)
//	}
//
// The pieces can also be used on their own: BlockReader streams a file as
// fixed-size zero-padded blocks, GetHashStrategy resolves an algorithm name
// to a block hash function, and ContentTrie groups any set of paths.
//
// # Padding
//
// The final short block of a file is zero-padded, so by default a file that
// ends in NUL bytes compares equal to the same file without them when both
// fit in the same number of blocks. ScanConfig.LengthAware makes the real
// length of the final block part of the comparison.
//
// # Configuration
//
// Settings are read from an INI file with LoadConfig and can be overridden
// with "key:value" strings through Config.ApplyOverrides. Enable debug output:
//
//	dupetrie.SetDebugFlags("trie,filter,extravalidation")
//	dupetrie.SetVerboseLevel(2)
package dupetrie
