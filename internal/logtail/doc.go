// Package logtail reads the tail of the engine's JSON log for display.
//
// Read keeps a ring buffer of the last N lines, so memory use is bounded by
// N regardless of file size, and decodes each line as a zerolog entry.
// A missing file returns nil, nil; other I/O errors are wrapped. Lines that
// are not JSON are kept as plain messages rather than dropped.
//
//	entries, err := logtail.Read(filepath.Join(dataDir, "kitchen.log"), 200)
//	for _, e := range entries {
//		fmt.Println(logtail.Format(e))
//	}
package logtail
