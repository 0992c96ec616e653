package filesystem

const (
	// TemporaryNamePrefix is the file name prefix used for all temporary files
	// created during an atomic write (download-in-progress local target
	// objects, and any WriteFileAtomic call). It may be suffixed with
	// additional elements if desired.
	TemporaryNamePrefix = ".s3sync-temporary-"
)
