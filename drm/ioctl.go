package drm

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// Raw mode setting ioctls, just enough to enumerate what is plugged in.
// Layouts follow the kernel uapi and must not be reordered

const (
	ioctlDirWrite = 1
	ioctlDirRead  = 2

	drmIoctlType = 'd'

	nrModeGetResources = 0xA0
	nrModeGetEncoder   = 0xA6
	nrModeGetConnector = 0xA7

	// drm_mode_modeinfo.type flag for the display's preferred timing
	modeTypePreferred = 1 << 3

	connectionConnected = 1
)

type modeCardRes struct {
	fbIDPtr         uint64
	crtcIDPtr       uint64
	connectorIDPtr  uint64
	encoderIDPtr    uint64
	countFBs        uint32
	countCRTCs      uint32
	countConnectors uint32
	countEncoders   uint32
	minWidth        uint32
	maxWidth        uint32
	minHeight       uint32
	maxHeight       uint32
}

type modeInfo struct {
	clock                                         uint32
	hdisplay, hsyncStart, hsyncEnd, htotal, hskew uint16
	vdisplay, vsyncStart, vsyncEnd, vtotal, vscan uint16
	vrefresh                                      uint32
	flags                                         uint32
	typ                                           uint32
	name                                          [32]byte
}

type modeGetConnector struct {
	encodersPtr     uint64
	modesPtr        uint64
	propsPtr        uint64
	propValuesPtr   uint64
	countModes      uint32
	countProps      uint32
	countEncoders   uint32
	encoderID       uint32
	connectorID     uint32
	connectorType   uint32
	connectorTypeID uint32
	connection      uint32
	mmWidth         uint32
	mmHeight        uint32
	subpixel        uint32
	pad             uint32
}

type modeGetEncoder struct {
	encoderID      uint32
	encoderType    uint32
	crtcID         uint32
	possibleCRTCs  uint32
	possibleClones uint32
}

// ioctlCode builds a _IOWR request number
func ioctlCode(nr, size uintptr) uintptr {
	const dir = ioctlDirRead | ioctlDirWrite
	return dir<<30 | size<<16 | drmIoctlType<<8 | nr
}

// ioctl issues the request, retrying the interruptions libdrm retries
func ioctl(fd int, req uintptr, arg unsafe.Pointer) error {
	for {
		_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(arg))
		if errno == 0 {
			return nil
		}
		if errno == unix.EINTR || errno == unix.EAGAIN {
			continue
		}
		return errno
	}
}

func getResources(fd int) (*modeCardRes, []uint32, []uint32, error) {
	req := ioctlCode(nrModeGetResources, unsafe.Sizeof(modeCardRes{}))
	// Two phase call: first fetch the counts, then the id arrays. When a
	// hotplug lands inbetween the counts change and we start over
	for {
		var res modeCardRes
		if err := ioctl(fd, req, unsafe.Pointer(&res)); err != nil {
			return nil, nil, nil, err
		}
		wantConnectors := res.countConnectors
		wantCRTCs := res.countCRTCs

		connectors := make([]uint32, wantConnectors)
		crtcs := make([]uint32, wantCRTCs)
		res = modeCardRes{
			countConnectors: wantConnectors,
			countCRTCs:      wantCRTCs,
		}
		if wantConnectors > 0 {
			res.connectorIDPtr = uint64(uintptr(unsafe.Pointer(&connectors[0])))
		}
		if wantCRTCs > 0 {
			res.crtcIDPtr = uint64(uintptr(unsafe.Pointer(&crtcs[0])))
		}
		if err := ioctl(fd, req, unsafe.Pointer(&res)); err != nil {
			return nil, nil, nil, err
		}
		if res.countConnectors != wantConnectors || res.countCRTCs != wantCRTCs {
			continue
		}
		return &res, connectors, crtcs, nil
	}
}

func getConnector(fd int, id uint32) (*modeGetConnector, []modeInfo, error) {
	req := ioctlCode(nrModeGetConnector, unsafe.Sizeof(modeGetConnector{}))
	for {
		conn := modeGetConnector{connectorID: id}
		if err := ioctl(fd, req, unsafe.Pointer(&conn)); err != nil {
			return nil, nil, err
		}
		wantModes := conn.countModes

		modes := make([]modeInfo, wantModes)
		conn = modeGetConnector{
			connectorID: id,
			countModes:  wantModes,
		}
		if wantModes > 0 {
			conn.modesPtr = uint64(uintptr(unsafe.Pointer(&modes[0])))
		}
		if err := ioctl(fd, req, unsafe.Pointer(&conn)); err != nil {
			return nil, nil, err
		}
		if conn.countModes != wantModes {
			continue
		}
		return &conn, modes, nil
	}
}

func getEncoder(fd int, id uint32) (*modeGetEncoder, error) {
	req := ioctlCode(nrModeGetEncoder, unsafe.Sizeof(modeGetEncoder{}))
	enc := modeGetEncoder{encoderID: id}
	if err := ioctl(fd, req, unsafe.Pointer(&enc)); err != nil {
		return nil, err
	}
	return &enc, nil
}

// cString cuts a fixed size byte field at its terminator
func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
