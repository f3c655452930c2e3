package interfaces

// PageSize is the translation granule of the address-space service. All
// region sizes handled by the partition manager are multiples of it.
const PageSize = 4096

// Addr is a virtual address inside a partition's address space.
type Addr uint64

// Prot is a page protection bitmask.
type Prot uint32

const (
	// ProtRead makes a page readable by the partition.
	ProtRead Prot = 1 << iota
	// ProtWrite makes a page writable by the partition.
	ProtWrite
	// ProtExec makes a page executable by the partition.
	ProtExec
	// ProtExternal makes a page accessible to the kernel's external
	// caller in addition to the partition. Only the non-secure
	// communication buffer carries it.
	ProtExternal
)

// ProtRW is the initial protection of freshly mapped regions.
const ProtRW = ProtRead | ProtWrite

// Access names the direction of a kernel access check against partition
// memory.
type Access int

const (
	// AccessRead checks that the kernel may read the range on the
	// partition's behalf.
	AccessRead Access = iota
	// AccessWrite checks that the kernel may write the range on the
	// partition's behalf.
	AccessWrite
)

// Mapping describes one mapped region, as reported by diagnostics.
type Mapping struct {
	Base Addr   `json:"base"`
	Size uint64 `json:"size"`
	Prot Prot   `json:"prot"`
}

// AddressSpace is a partition's private virtual address space. It is
// exclusively owned by one partition context; all sizes are rounded up to
// page multiples by the implementation.
type AddressSpace interface {
	// Map allocates backing memory of the given size, maps it with prot
	// and returns the chosen base address.
	Map(size uint64, prot Prot) (Addr, error)

	// SetProtection re-applies protection over [base, base+size). The
	// range must be fully mapped.
	SetProtection(base Addr, size uint64, prot Prot) error

	// Protection reports the protection of the page containing addr.
	// Unmapped addresses return an error, never a fault.
	Protection(addr Addr) (Prot, error)

	// CheckAccess verifies that the kernel may perform the given access
	// over [base, base+size) on the partition's behalf.
	CheckAccess(access Access, base Addr, size uint64) error

	// ReadAt copies partition memory at addr into p.
	ReadAt(p []byte, addr Addr) error

	// WriteAt copies p into partition memory at addr.
	WriteAt(p []byte, addr Addr) error

	// Mappings returns the current mappings for diagnostics.
	Mappings() []Mapping

	// ID returns the address-space identifier.
	ID() uint32

	// Release unmaps every region and frees the address space. The
	// address space must not be used afterwards.
	Release()
}

// AddressSpaceProvider allocates address spaces for new partition contexts.
type AddressSpaceProvider interface {
	NewAddressSpace() (AddressSpace, error)
}
