package interfaces

// MaxObjectNameLen is the longest accepted persistent object name, in bytes.
const MaxObjectNameLen = 64

// ObjectStore resolves named persistent objects on one physical storage
// medium.
type ObjectStore interface {
	// Resolve returns a reference to the named object. The reference
	// exists whether or not the object does; it must be released on
	// every path after use.
	Resolve(name string) (ObjectRef, error)
}

// ObjectRef is a resolved reference to a named object.
type ObjectRef interface {
	// Open opens the existing object. Returns ErrObjectNotFound if the
	// object has never been created.
	Open() (ObjectHandle, error)

	// Create opens the object, creating it empty if absent.
	Create() (ObjectHandle, error)

	// Remove deletes the object.
	Remove() error

	// Release drops the reference. It is safe to call exactly once on
	// every exit path, including after Remove.
	Release()
}

// ObjectHandle is an open object. Offsets address the object's payload.
//
// ReadAt reads up to len(p) bytes at off and reports the count actually
// read. Unlike io.ReaderAt, a short read past the end of the object is not
// an error; callers decide what an incomplete read means. A failed
// integrity check is reported as ErrCorruptObject.
type ObjectHandle interface {
	ReadAt(p []byte, off int64) (int, error)
	WriteAt(p []byte, off int64) (int, error)
	Close() error
}

// StoreResolver maps the storage-medium identifier carried in a relay
// request to the object store backing it.
type StoreResolver interface {
	StoreFor(storageID uint32) (ObjectStore, error)
}
