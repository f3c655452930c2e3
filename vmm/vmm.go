package vmm

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/atomic"

	"github.com/teekernel/tee-partition-manager/interfaces"
)

// mapBase is the lowest address handed out; regions are placed upwards from
// here with a guard page between them.
const mapBase interfaces.Addr = 0x4000_0000

type region struct {
	base interfaces.Addr
	data []byte
	prot []interfaces.Prot // one entry per page
}

func (r *region) end() interfaces.Addr {
	return r.base + interfaces.Addr(len(r.data))
}

func (r *region) contains(a interfaces.Addr) bool {
	return a >= r.base && a < r.end()
}

// AddressSpace is an in-memory address space with per-page protections.
type AddressSpace struct {
	mu      sync.Mutex
	regions []*region
	next    interfaces.Addr
	asid    uint32
}

var _ interfaces.AddressSpace = (*AddressSpace)(nil)

// Provider allocates in-memory address spaces with unique identifiers.
type Provider struct {
	nextASID atomic.Uint32
}

// NewProvider returns a Provider ready for use.
func NewProvider() *Provider { return &Provider{} }

// NewAddressSpace implements interfaces.AddressSpaceProvider.
func (p *Provider) NewAddressSpace() (interfaces.AddressSpace, error) {
	return &AddressSpace{
		next: mapBase,
		asid: p.nextASID.Inc(),
	}, nil
}

func roundUpPage(size uint64) uint64 {
	return (size + interfaces.PageSize - 1) &^ uint64(interfaces.PageSize-1)
}

// Map implements interfaces.AddressSpace.
func (s *AddressSpace) Map(size uint64, prot interfaces.Prot) (interfaces.Addr, error) {
	if size == 0 {
		return 0, interfaces.ErrBadParameters
	}

	size = roundUpPage(size)

	s.mu.Lock()
	defer s.mu.Unlock()

	r := &region{
		base: s.next,
		data: make([]byte, size),
		prot: make([]interfaces.Prot, size/interfaces.PageSize),
	}
	for i := range r.prot {
		r.prot[i] = prot
	}

	s.regions = append(s.regions, r)
	// leave a guard page between regions
	s.next = r.end() + interfaces.PageSize

	return r.base, nil
}

func (s *AddressSpace) regionFor(a interfaces.Addr) *region {
	for _, r := range s.regions {
		if r.contains(a) {
			return r
		}
	}
	return nil
}

// SetProtection implements interfaces.AddressSpace. The range must lie
// within a single mapped region.
func (s *AddressSpace) SetProtection(base interfaces.Addr, size uint64, prot interfaces.Prot) error {
	if base%interfaces.PageSize != 0 || size == 0 {
		return interfaces.ErrBadParameters
	}

	size = roundUpPage(size)

	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.regionFor(base)
	if r == nil || base+interfaces.Addr(size) > r.end() {
		return fmt.Errorf("%w: [%#x, %#x)", interfaces.ErrNotMapped, base, base+interfaces.Addr(size))
	}

	first := uint64(base-r.base) / interfaces.PageSize
	for i := uint64(0); i < size/interfaces.PageSize; i++ {
		r.prot[first+i] = prot
	}

	return nil
}

// Protection implements interfaces.AddressSpace.
func (s *AddressSpace) Protection(addr interfaces.Addr) (interfaces.Prot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.regionFor(addr)
	if r == nil {
		return 0, interfaces.ErrNotMapped
	}

	return r.prot[uint64(addr-r.base)/interfaces.PageSize], nil
}

// CheckAccess implements interfaces.AddressSpace. Every page in the range
// must be mapped with the protection the access direction requires.
func (s *AddressSpace) CheckAccess(access interfaces.Access, base interfaces.Addr, size uint64) error {
	if size == 0 {
		return nil
	}

	need := interfaces.ProtRead
	if access == interfaces.AccessWrite {
		need = interfaces.ProtWrite
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	end := base + interfaces.Addr(size)
	if end < base {
		return interfaces.ErrBadParameters
	}

	for page := base &^ (interfaces.PageSize - 1); page < end; page += interfaces.PageSize {
		r := s.regionFor(page)
		if r == nil {
			return interfaces.ErrNotMapped
		}
		if r.prot[uint64(page-r.base)/interfaces.PageSize]&need == 0 {
			return fmt.Errorf("%w: page %#x lacks required access", interfaces.ErrBadParameters, page)
		}
	}

	return nil
}

// ReadAt implements interfaces.AddressSpace. The range must lie within a
// single mapped region.
func (s *AddressSpace) ReadAt(p []byte, addr interfaces.Addr) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.regionFor(addr)
	if r == nil || addr+interfaces.Addr(len(p)) > r.end() {
		return interfaces.ErrNotMapped
	}

	copy(p, r.data[addr-r.base:])
	return nil
}

// WriteAt implements interfaces.AddressSpace. The range must lie within a
// single mapped region.
func (s *AddressSpace) WriteAt(p []byte, addr interfaces.Addr) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.regionFor(addr)
	if r == nil || addr+interfaces.Addr(len(p)) > r.end() {
		return interfaces.ErrNotMapped
	}

	copy(r.data[addr-r.base:], p)
	return nil
}

// Mappings implements interfaces.AddressSpace. Adjacent pages with equal
// protection are coalesced.
func (s *AddressSpace) Mappings() []interfaces.Mapping {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []interfaces.Mapping
	for _, r := range s.regions {
		for i := 0; i < len(r.prot); {
			j := i
			for j < len(r.prot) && r.prot[j] == r.prot[i] {
				j++
			}
			out = append(out, interfaces.Mapping{
				Base: r.base + interfaces.Addr(i*interfaces.PageSize),
				Size: uint64(j-i) * interfaces.PageSize,
				Prot: r.prot[i],
			})
			i = j
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Base < out[j].Base })
	return out
}

// ID implements interfaces.AddressSpace.
func (s *AddressSpace) ID() uint32 { return s.asid }

// Release implements interfaces.AddressSpace.
func (s *AddressSpace) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.regions = nil
}
