//go:build windows

// Package wpd implements the Windows device backend over the Windows
// Portable Devices COM API. Unlike the gvfs mount there is no filesystem
// view; every operation is a COM call against the device session, and the
// device hands out real write streams, so the backend advertises direct
// write capability.
package wpd

import (
	"context"
	"fmt"
	"io"
	"syscall"
	"unsafe"

	"github.com/go-ole/go-ole"
	"golang.org/x/sys/windows"

	"github.com/sinajet/nx-mtp-sender/pkg/backend"
)

// Root object ID every WPD device exposes.
const deviceObjectID = "DEVICE"

// FILETIME ticks between 1601-01-01 and 1970-01-01.
const filetimeUnixDelta = 116444736000000000

var (
	clsidPortableDeviceManager = ole.NewGUID("{0af10cec-2ecd-4b92-9581-34f6ae0637f3}")
	iidPortableDeviceManager   = ole.NewGUID("{a1567595-4c2f-4574-a6fa-ecef917b9a40}")

	clsidPortableDeviceFTM = ole.NewGUID("{f7c0039a-4762-488a-b4b3-760ef9a1ba9b}")
	iidPortableDevice      = ole.NewGUID("{625e2df8-6392-4cf0-9ad1-3cfa5f17775c}")

	clsidPortableDeviceValues = ole.NewGUID("{0c15d503-d017-47ce-9016-7b3f978721cc}")
	iidPortableDeviceValues   = ole.NewGUID("{6848f6f2-3155-4f86-b6f5-263eeeab3143}")

	clsidPropVariantCollection = ole.NewGUID("{08a99e2f-6d6d-4b80-af5a-baf2bcbe4cb9}")
	iidPropVariantCollection   = ole.NewGUID("{89b2e422-4f1b-4316-bcef-a44afea83eb3}")

	guidContentTypeFolder     = *ole.NewGUID("{27E2E392-A111-48E0-AB0C-E17705A05F85}")
	guidContentTypeFunctional = *ole.NewGUID("{99ED0160-17FF-4C44-9D98-1D7A6F941921}")
)

type propertyKey struct {
	fmtid ole.GUID
	pid   uint32
}

var (
	fmtidObject = *ole.NewGUID("{EF6B490D-5CD8-437A-AFFC-DA8B60EE4A3C}")
	fmtidClient = *ole.NewGUID("{204D9F0C-2292-4080-9F42-40664E70F859}")

	keyObjectParentID     = propertyKey{fmtidObject, 3}
	keyObjectName         = propertyKey{fmtidObject, 4}
	keyObjectContentType  = propertyKey{fmtidObject, 7}
	keyObjectSize         = propertyKey{fmtidObject, 11}
	keyObjectOriginalName = propertyKey{fmtidObject, 12}
	keyObjectDateModified = propertyKey{fmtidObject, 19}

	keyClientName         = propertyKey{fmtidClient, 2}
	keyClientMajorVersion = propertyKey{fmtidClient, 3}
	keyClientMinorVersion = propertyKey{fmtidClient, 4}
	keyClientRevision     = propertyKey{fmtidClient, 5}

	keyResourceDefault = propertyKey{*ole.NewGUID("{E81E79BE-34F0-41BF-B53F-F1A06AE87842}"), 0}
)

// propVariant matches the 64-bit PROPVARIANT layout closely enough for
// the variant types this backend reads and writes.
type propVariant struct {
	vt       uint16
	reserved [3]uint16
	val      [16]byte
}

const (
	vtEmpty    = 0
	vtDate     = 7
	vtFiletime = 64
	vtLpwstr   = 31
)

func hr(r uintptr) error {
	if int32(r) < 0 {
		return ole.NewError(r)
	}
	return nil
}

// Raw COM interface layouts. Only the slots this backend calls are named
// past the IUnknown triple; the rest keep their vtable positions.

type deviceManager struct{ vtbl *deviceManagerVtbl }

type deviceManagerVtbl struct {
	queryInterface, addRef, release uintptr

	getDevices            uintptr
	refreshDeviceList     uintptr
	getDeviceFriendlyName uintptr
	getDeviceDescription  uintptr
	getDeviceManufacturer uintptr
	getDeviceProperty     uintptr
	getPrivateDevices     uintptr
}

type portableDevice struct{ vtbl *portableDeviceVtbl }

type portableDeviceVtbl struct {
	queryInterface, addRef, release uintptr

	open           uintptr
	sendCommand    uintptr
	content        uintptr
	capabilities   uintptr
	cancel         uintptr
	closeDevice    uintptr
	advise         uintptr
	unadvise       uintptr
	getPnPDeviceID uintptr
}

type deviceContent struct{ vtbl *deviceContentVtbl }

type deviceContentVtbl struct {
	queryInterface, addRef, release uintptr

	enumObjects                         uintptr
	properties                          uintptr
	transfer                            uintptr
	createObjectWithPropertiesOnly      uintptr
	createObjectWithPropertiesAndData   uintptr
	deleteObjects                       uintptr
	getObjectIDsFromPersistentUniqueIDs uintptr
	cancel                              uintptr
	move                                uintptr
	copyObjects                         uintptr
}

type objectIDEnum struct{ vtbl *objectIDEnumVtbl }

type objectIDEnumVtbl struct {
	queryInterface, addRef, release uintptr

	next  uintptr
	skip  uintptr
	reset uintptr
	clone uintptr
}

type deviceProperties struct{ vtbl *devicePropertiesVtbl }

type devicePropertiesVtbl struct {
	queryInterface, addRef, release uintptr

	getSupportedProperties uintptr
	getPropertyAttributes  uintptr
	getValues              uintptr
	setValues              uintptr
	deleteProperties       uintptr
	cancel                 uintptr
}

type deviceResources struct{ vtbl *deviceResourcesVtbl }

type deviceResourcesVtbl struct {
	queryInterface, addRef, release uintptr

	getSupportedResources uintptr
	getResourceAttributes uintptr
	getStream             uintptr
	deleteResource        uintptr
	cancel                uintptr
	createResource        uintptr
}

type deviceValues struct{ vtbl *deviceValuesVtbl }

type deviceValuesVtbl struct {
	queryInterface, addRef, release uintptr

	getCount                     uintptr
	getAt                        uintptr
	setValue                     uintptr
	getValue                     uintptr
	setStringValue               uintptr
	getStringValue               uintptr
	setUnsignedIntegerValue      uintptr
	getUnsignedIntegerValue      uintptr
	setSignedIntegerValue        uintptr
	getSignedIntegerValue        uintptr
	setUnsignedLargeIntegerValue uintptr
	getUnsignedLargeIntegerValue uintptr
	setSignedLargeIntegerValue   uintptr
	getSignedLargeIntegerValue   uintptr
	setFloatValue                uintptr
	getFloatValue                uintptr
	setErrorValue                uintptr
	getErrorValue                uintptr
	setKeyValue                  uintptr
	getKeyValue                  uintptr
	setBoolValue                 uintptr
	getBoolValue                 uintptr
	setIUnknownValue             uintptr
	getIUnknownValue             uintptr
	setGuidValue                 uintptr
	getGuidValue                 uintptr
	setBufferValue               uintptr
	getBufferValue               uintptr

	setValuesValue              uintptr
	getValuesValue              uintptr
	setPropVariantCollection    uintptr
	getPropVariantCollection    uintptr
	setKeyCollectionValue       uintptr
	getKeyCollectionValue       uintptr
	setValuesCollectionValue    uintptr
	getValuesCollectionValue    uintptr
	removeValue                 uintptr
	copyValuesFromPropertyStore uintptr
	copyValuesToPropertyStore   uintptr
	clear                       uintptr
}

type propVariantCollection struct{ vtbl *propVariantCollectionVtbl }

type propVariantCollectionVtbl struct {
	queryInterface, addRef, release uintptr

	getCount   uintptr
	getAt      uintptr
	add        uintptr
	getType    uintptr
	changeType uintptr
	clear      uintptr
	removeAt   uintptr
}

type comStream struct{ vtbl *comStreamVtbl }

type comStreamVtbl struct {
	queryInterface, addRef, release uintptr

	read  uintptr
	write uintptr

	seek         uintptr
	setSize      uintptr
	copyTo       uintptr
	commit       uintptr
	revert       uintptr
	lockRegion   uintptr
	unlockRegion uintptr
	stat         uintptr
	clone        uintptr
}

func releaseCom(self uintptr, releaseSlot uintptr) {
	syscall.SyscallN(releaseSlot, self)
}

// Backend talks to the Portable Device Manager. One COM apartment per
// process; New initializes it and Close tears it down.
type Backend struct {
	mgr *deviceManager
}

// New initializes COM and connects to the device manager.
func New() (*Backend, error) {
	if err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED); err != nil {
		oleErr, ok := err.(*ole.OleError)
		// S_FALSE means already initialized on this thread.
		if !ok || oleErr.Code() != 1 {
			return nil, fmt.Errorf("initialize COM: %w", err)
		}
	}
	unk, err := ole.CreateInstance(clsidPortableDeviceManager, iidPortableDeviceManager)
	if err != nil {
		return nil, fmt.Errorf("create device manager: %w", err)
	}
	return &Backend{mgr: (*deviceManager)(unsafe.Pointer(unk))}, nil
}

func (b *Backend) Type() string { return "wpd" }

func (b *Backend) Close() error {
	if b.mgr != nil {
		releaseCom(uintptr(unsafe.Pointer(b.mgr)), b.mgr.vtbl.release)
		b.mgr = nil
	}
	ole.CoUninitialize()
	return nil
}

func (b *Backend) ListDevices(ctx context.Context) ([]backend.DeviceInfo, error) {
	self := uintptr(unsafe.Pointer(b.mgr))

	r, _, _ := syscall.SyscallN(b.mgr.vtbl.refreshDeviceList, self)
	if err := hr(r); err != nil {
		return nil, fmt.Errorf("refresh device list: %w", err)
	}

	var count uint32
	r, _, _ = syscall.SyscallN(b.mgr.vtbl.getDevices, self, 0, uintptr(unsafe.Pointer(&count)))
	if err := hr(r); err != nil {
		return nil, fmt.Errorf("count devices: %w", err)
	}
	if count == 0 {
		return nil, nil
	}

	ids := make([]*uint16, count)
	r, _, _ = syscall.SyscallN(b.mgr.vtbl.getDevices, self,
		uintptr(unsafe.Pointer(&ids[0])), uintptr(unsafe.Pointer(&count)))
	if err := hr(r); err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}

	out := make([]backend.DeviceInfo, 0, count)
	for _, id := range ids[:count] {
		pnpID := windows.UTF16PtrToString(id)
		info := backend.DeviceInfo{ID: pnpID}
		if name, err := b.deviceString(b.mgr.vtbl.getDeviceFriendlyName, id); err == nil && name != "" {
			info.Name = name
			info.FriendlyName = true
		}
		if desc, err := b.deviceString(b.mgr.vtbl.getDeviceDescription, id); err == nil {
			info.Description = desc
		}
		ole.CoTaskMemFree(uintptr(unsafe.Pointer(id)))
		out = append(out, info)
	}
	return out, nil
}

// deviceString reads one of the manager's per-device string properties
// with the usual size-then-fill calling convention.
func (b *Backend) deviceString(slot uintptr, deviceID *uint16) (string, error) {
	self := uintptr(unsafe.Pointer(b.mgr))
	var n uint32
	r, _, _ := syscall.SyscallN(slot, self, uintptr(unsafe.Pointer(deviceID)), 0, uintptr(unsafe.Pointer(&n)))
	if err := hr(r); err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	buf := make([]uint16, n)
	r, _, _ = syscall.SyscallN(slot, self, uintptr(unsafe.Pointer(deviceID)),
		uintptr(unsafe.Pointer(&buf[0])), uintptr(unsafe.Pointer(&n)))
	if err := hr(r); err != nil {
		return "", err
	}
	return windows.UTF16ToString(buf), nil
}

func newDeviceValues() (*deviceValues, error) {
	unk, err := ole.CreateInstance(clsidPortableDeviceValues, iidPortableDeviceValues)
	if err != nil {
		return nil, fmt.Errorf("create device values: %w", err)
	}
	return (*deviceValues)(unsafe.Pointer(unk)), nil
}

func (v *deviceValues) release() {
	releaseCom(uintptr(unsafe.Pointer(v)), v.vtbl.release)
}

func (v *deviceValues) setString(key propertyKey, s string) error {
	p, err := windows.UTF16PtrFromString(s)
	if err != nil {
		return err
	}
	r, _, _ := syscall.SyscallN(v.vtbl.setStringValue, uintptr(unsafe.Pointer(v)),
		uintptr(unsafe.Pointer(&key)), uintptr(unsafe.Pointer(p)))
	return hr(r)
}

func (v *deviceValues) getString(key propertyKey) (string, error) {
	var p *uint16
	r, _, _ := syscall.SyscallN(v.vtbl.getStringValue, uintptr(unsafe.Pointer(v)),
		uintptr(unsafe.Pointer(&key)), uintptr(unsafe.Pointer(&p)))
	if err := hr(r); err != nil {
		return "", err
	}
	s := windows.UTF16PtrToString(p)
	ole.CoTaskMemFree(uintptr(unsafe.Pointer(p)))
	return s, nil
}

func (v *deviceValues) setUint32(key propertyKey, n uint32) error {
	r, _, _ := syscall.SyscallN(v.vtbl.setUnsignedIntegerValue, uintptr(unsafe.Pointer(v)),
		uintptr(unsafe.Pointer(&key)), uintptr(n))
	return hr(r)
}

func (v *deviceValues) setUint64(key propertyKey, n uint64) error {
	r, _, _ := syscall.SyscallN(v.vtbl.setUnsignedLargeIntegerValue, uintptr(unsafe.Pointer(v)),
		uintptr(unsafe.Pointer(&key)), uintptr(n))
	return hr(r)
}

func (v *deviceValues) getUint64(key propertyKey) (uint64, error) {
	var n uint64
	r, _, _ := syscall.SyscallN(v.vtbl.getUnsignedLargeIntegerValue, uintptr(unsafe.Pointer(v)),
		uintptr(unsafe.Pointer(&key)), uintptr(unsafe.Pointer(&n)))
	return n, hr(r)
}

func (v *deviceValues) setGUID(key propertyKey, g ole.GUID) error {
	r, _, _ := syscall.SyscallN(v.vtbl.setGuidValue, uintptr(unsafe.Pointer(v)),
		uintptr(unsafe.Pointer(&key)), uintptr(unsafe.Pointer(&g)))
	return hr(r)
}

func (v *deviceValues) getGUID(key propertyKey) (ole.GUID, error) {
	var g ole.GUID
	r, _, _ := syscall.SyscallN(v.vtbl.getGuidValue, uintptr(unsafe.Pointer(v)),
		uintptr(unsafe.Pointer(&key)), uintptr(unsafe.Pointer(&g)))
	return g, hr(r)
}

func (v *deviceValues) getVariant(key propertyKey) (propVariant, error) {
	var pv propVariant
	r, _, _ := syscall.SyscallN(v.vtbl.getValue, uintptr(unsafe.Pointer(v)),
		uintptr(unsafe.Pointer(&key)), uintptr(unsafe.Pointer(&pv)))
	return pv, hr(r)
}

// clientInfo builds the identification block the device session requires.
func clientInfo() (*deviceValues, error) {
	v, err := newDeviceValues()
	if err != nil {
		return nil, err
	}
	if err := v.setString(keyClientName, "nx-mtp-sender"); err != nil {
		v.release()
		return nil, err
	}
	for _, kv := range []struct {
		key propertyKey
		val uint32
	}{
		{keyClientMajorVersion, 1},
		{keyClientMinorVersion, 0},
		{keyClientRevision, 0},
	} {
		if err := v.setUint32(kv.key, kv.val); err != nil {
			v.release()
			return nil, err
		}
	}
	return v, nil
}

func (b *Backend) Open(ctx context.Context, deviceID string) (backend.Conn, error) {
	unk, err := ole.CreateInstance(clsidPortableDeviceFTM, iidPortableDevice)
	if err != nil {
		return nil, fmt.Errorf("create portable device: %w", err)
	}
	dev := (*portableDevice)(unsafe.Pointer(unk))

	info, err := clientInfo()
	if err != nil {
		releaseCom(uintptr(unsafe.Pointer(dev)), dev.vtbl.release)
		return nil, err
	}
	defer info.release()

	idPtr, err := windows.UTF16PtrFromString(deviceID)
	if err != nil {
		releaseCom(uintptr(unsafe.Pointer(dev)), dev.vtbl.release)
		return nil, err
	}
	r, _, _ := syscall.SyscallN(dev.vtbl.open, uintptr(unsafe.Pointer(dev)),
		uintptr(unsafe.Pointer(idPtr)), uintptr(unsafe.Pointer(info)))
	if err := hr(r); err != nil {
		releaseCom(uintptr(unsafe.Pointer(dev)), dev.vtbl.release)
		return nil, fmt.Errorf("open device session: %w", backend.ErrUnavailable)
	}

	var content *deviceContent
	r, _, _ = syscall.SyscallN(dev.vtbl.content, uintptr(unsafe.Pointer(dev)),
		uintptr(unsafe.Pointer(&content)))
	if err := hr(r); err != nil {
		releaseCom(uintptr(unsafe.Pointer(dev)), dev.vtbl.release)
		return nil, fmt.Errorf("device content: %w", err)
	}

	var props *deviceProperties
	r, _, _ = syscall.SyscallN(content.vtbl.properties, uintptr(unsafe.Pointer(content)),
		uintptr(unsafe.Pointer(&props)))
	if err := hr(r); err != nil {
		releaseCom(uintptr(unsafe.Pointer(content)), content.vtbl.release)
		releaseCom(uintptr(unsafe.Pointer(dev)), dev.vtbl.release)
		return nil, fmt.Errorf("device properties: %w", err)
	}

	return &conn{dev: dev, content: content, props: props}, nil
}

type conn struct {
	dev     *portableDevice
	content *deviceContent
	props   *deviceProperties
	closed  bool
}

func (c *conn) Capabilities() backend.Capabilities {
	return backend.Capabilities{
		DirectWrite: true,
		FoldsCase:   false,
		Separator:   "\\",
	}
}

func (c *conn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	releaseCom(uintptr(unsafe.Pointer(c.props)), c.props.vtbl.release)
	releaseCom(uintptr(unsafe.Pointer(c.content)), c.content.vtbl.release)
	syscall.SyscallN(c.dev.vtbl.closeDevice, uintptr(unsafe.Pointer(c.dev)))
	releaseCom(uintptr(unsafe.Pointer(c.dev)), c.dev.vtbl.release)
	return nil
}

func (c *conn) Root(ctx context.Context) (backend.Object, error) {
	return backend.Object{ID: deviceObjectID, Tag: backend.TagDevice}, nil
}

func (c *conn) Children(ctx context.Context, parentID string) ([]backend.Object, error) {
	parent, err := windows.UTF16PtrFromString(parentID)
	if err != nil {
		return nil, err
	}

	var enum *objectIDEnum
	r, _, _ := syscall.SyscallN(c.content.vtbl.enumObjects, uintptr(unsafe.Pointer(c.content)),
		0, uintptr(unsafe.Pointer(parent)), 0, uintptr(unsafe.Pointer(&enum)))
	if err := hr(r); err != nil {
		return nil, fmt.Errorf("enumerate %q: %w", parentID, err)
	}
	defer releaseCom(uintptr(unsafe.Pointer(enum)), enum.vtbl.release)

	var out []backend.Object
	batch := make([]*uint16, 16)
	for {
		var fetched uint32
		r, _, _ := syscall.SyscallN(enum.vtbl.next, uintptr(unsafe.Pointer(enum)),
			uintptr(len(batch)), uintptr(unsafe.Pointer(&batch[0])), uintptr(unsafe.Pointer(&fetched)))
		if err := hr(r); err != nil {
			return nil, fmt.Errorf("enumerate %q: %w", parentID, err)
		}
		if fetched == 0 {
			break
		}
		for _, p := range batch[:fetched] {
			id := windows.UTF16PtrToString(p)
			ole.CoTaskMemFree(uintptr(unsafe.Pointer(p)))
			obj, err := c.Properties(ctx, id)
			if err != nil {
				return nil, err
			}
			out = append(out, obj)
		}
		// S_FALSE from Next means the enumeration is exhausted.
		if r == 1 {
			break
		}
	}
	return out, nil
}

func (c *conn) Properties(ctx context.Context, id string) (backend.Object, error) {
	if id == deviceObjectID {
		return backend.Object{ID: deviceObjectID, Tag: backend.TagDevice}, nil
	}

	idPtr, err := windows.UTF16PtrFromString(id)
	if err != nil {
		return backend.Object{}, err
	}
	var values *deviceValues
	r, _, _ := syscall.SyscallN(c.props.vtbl.getValues, uintptr(unsafe.Pointer(c.props)),
		uintptr(unsafe.Pointer(idPtr)), 0, uintptr(unsafe.Pointer(&values)))
	if err := hr(r); err != nil {
		return backend.Object{}, fmt.Errorf("properties of %q: %w", id, err)
	}
	defer values.release()

	obj := backend.Object{ID: id}

	// Original filename when present, display name otherwise. Storages
	// and functional objects carry only the display name.
	if name, err := values.getString(keyObjectOriginalName); err == nil && name != "" {
		obj.Name = name
	} else if name, err := values.getString(keyObjectName); err == nil {
		obj.Name = name
	}

	ctype, err := values.getGUID(keyObjectContentType)
	switch {
	case err == nil && ole.IsEqualGUID(&ctype, &guidContentTypeFolder):
		obj.Tag = backend.TagFolder
	case err == nil && ole.IsEqualGUID(&ctype, &guidContentTypeFunctional):
		obj.Tag = backend.TagStorage
	default:
		obj.Tag = backend.TagFile
		if size, err := values.getUint64(keyObjectSize); err == nil {
			obj.Size = int64(size)
		}
	}

	if pv, err := values.getVariant(keyObjectDateModified); err == nil {
		obj.Modified = variantTimestamp(pv)
	}
	return obj, nil
}

// variantTimestamp converts the PROPVARIANT timestamp encodings devices
// actually use into the backend's raw form. Automation dates count days
// since 1899-12-30.
func variantTimestamp(pv propVariant) backend.RawTimestamp {
	switch pv.vt {
	case vtFiletime:
		ticks := *(*uint64)(unsafe.Pointer(&pv.val[0]))
		return backend.RawTimestamp{Encoding: backend.TimeFiletime, Ticks: ticks}
	case vtDate:
		days := *(*float64)(unsafe.Pointer(&pv.val[0]))
		unix := int64((days - 25569.0) * 86400.0)
		return backend.RawTimestamp{
			Encoding: backend.TimeFiletime,
			Ticks:    uint64(unix*10_000_000 + filetimeUnixDelta),
		}
	default:
		return backend.RawTimestamp{}
	}
}

// streamReader adapts a WPD resource IStream to io.ReadCloser.
type streamReader struct {
	s *comStream
}

func (r *streamReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	var read uint32
	res, _, _ := syscall.SyscallN(r.s.vtbl.read, uintptr(unsafe.Pointer(r.s)),
		uintptr(unsafe.Pointer(&p[0])), uintptr(len(p)), uintptr(unsafe.Pointer(&read)))
	if err := hr(res); err != nil {
		return int(read), err
	}
	if read == 0 {
		return 0, io.EOF
	}
	return int(read), nil
}

func (r *streamReader) Close() error {
	releaseCom(uintptr(unsafe.Pointer(r.s)), r.s.vtbl.release)
	return nil
}

func (c *conn) OpenRead(ctx context.Context, id string) (io.ReadCloser, error) {
	var resources *deviceResources
	r, _, _ := syscall.SyscallN(c.content.vtbl.transfer, uintptr(unsafe.Pointer(c.content)),
		uintptr(unsafe.Pointer(&resources)))
	if err := hr(r); err != nil {
		return nil, fmt.Errorf("device resources: %w", err)
	}
	defer releaseCom(uintptr(unsafe.Pointer(resources)), resources.vtbl.release)

	idPtr, err := windows.UTF16PtrFromString(id)
	if err != nil {
		return nil, err
	}
	const stgmRead = 0
	var optimal uint32
	var stream *comStream
	key := keyResourceDefault
	r, _, _ = syscall.SyscallN(resources.vtbl.getStream, uintptr(unsafe.Pointer(resources)),
		uintptr(unsafe.Pointer(idPtr)), uintptr(unsafe.Pointer(&key)), stgmRead,
		uintptr(unsafe.Pointer(&optimal)), uintptr(unsafe.Pointer(&stream)))
	if err := hr(r); err != nil {
		return nil, fmt.Errorf("open content stream for %q: %w", id, err)
	}
	return &streamReader{s: stream}, nil
}

// objectProperties assembles the property block for object creation.
func objectProperties(parentID, name string) (*deviceValues, error) {
	v, err := newDeviceValues()
	if err != nil {
		return nil, err
	}
	if err := v.setString(keyObjectParentID, parentID); err != nil {
		v.release()
		return nil, err
	}
	if err := v.setString(keyObjectName, name); err != nil {
		v.release()
		return nil, err
	}
	if err := v.setString(keyObjectOriginalName, name); err != nil {
		v.release()
		return nil, err
	}
	return v, nil
}

func (c *conn) CreateFolder(ctx context.Context, parentID, name string) (backend.Object, error) {
	v, err := objectProperties(parentID, name)
	if err != nil {
		return backend.Object{}, err
	}
	defer v.release()
	if err := v.setGUID(keyObjectContentType, guidContentTypeFolder); err != nil {
		return backend.Object{}, err
	}

	var newID *uint16
	r, _, _ := syscall.SyscallN(c.content.vtbl.createObjectWithPropertiesOnly,
		uintptr(unsafe.Pointer(c.content)), uintptr(unsafe.Pointer(v)), uintptr(unsafe.Pointer(&newID)))
	if err := hr(r); err != nil {
		return backend.Object{}, fmt.Errorf("create folder %q: %w", name, err)
	}
	id := windows.UTF16PtrToString(newID)
	ole.CoTaskMemFree(uintptr(unsafe.Pointer(newID)))
	return c.Properties(ctx, id)
}

// streamWriter adapts the creation IStream to io.WriteCloser; the object
// materializes on the device when Commit succeeds.
type streamWriter struct {
	s *comStream
}

func (w *streamWriter) Write(p []byte) (int, error) {
	total := 0
	for total < len(p) {
		var written uint32
		r, _, _ := syscall.SyscallN(w.s.vtbl.write, uintptr(unsafe.Pointer(w.s)),
			uintptr(unsafe.Pointer(&p[total])), uintptr(len(p)-total), uintptr(unsafe.Pointer(&written)))
		if err := hr(r); err != nil {
			return total, err
		}
		total += int(written)
	}
	return total, nil
}

func (w *streamWriter) Close() error {
	r, _, _ := syscall.SyscallN(w.s.vtbl.commit, uintptr(unsafe.Pointer(w.s)), 0)
	err := hr(r)
	releaseCom(uintptr(unsafe.Pointer(w.s)), w.s.vtbl.release)
	if err != nil {
		return fmt.Errorf("commit content stream: %w", err)
	}
	return nil
}

func (c *conn) CreateFile(ctx context.Context, parentID, name string, size int64) (io.WriteCloser, error) {
	v, err := objectProperties(parentID, name)
	if err != nil {
		return nil, err
	}
	defer v.release()
	if err := v.setUint64(keyObjectSize, uint64(size)); err != nil {
		return nil, err
	}

	var optimal uint32
	var stream *comStream
	r, _, _ := syscall.SyscallN(c.content.vtbl.createObjectWithPropertiesAndData,
		uintptr(unsafe.Pointer(c.content)), uintptr(unsafe.Pointer(v)),
		uintptr(unsafe.Pointer(&stream)), uintptr(unsafe.Pointer(&optimal)), 0)
	if err := hr(r); err != nil {
		return nil, fmt.Errorf("create file %q: %w", name, err)
	}
	return &streamWriter{s: stream}, nil
}

// PushFile is never needed here; the device accepts direct streams.
func (c *conn) PushFile(ctx context.Context, parentID, name, localPath string) error {
	return backend.ErrUnsupported
}

func (c *conn) Delete(ctx context.Context, id string, recursive bool) (bool, error) {
	unk, err := ole.CreateInstance(clsidPropVariantCollection, iidPropVariantCollection)
	if err != nil {
		return false, fmt.Errorf("create id collection: %w", err)
	}
	coll := (*propVariantCollection)(unsafe.Pointer(unk))
	defer releaseCom(uintptr(unsafe.Pointer(coll)), coll.vtbl.release)

	idPtr, err := windows.UTF16PtrFromString(id)
	if err != nil {
		return false, err
	}
	var pv propVariant
	pv.vt = vtLpwstr
	*(*uintptr)(unsafe.Pointer(&pv.val[0])) = uintptr(unsafe.Pointer(idPtr))

	r, _, _ := syscall.SyscallN(coll.vtbl.add, uintptr(unsafe.Pointer(coll)), uintptr(unsafe.Pointer(&pv)))
	if err := hr(r); err != nil {
		return false, fmt.Errorf("collect object id: %w", err)
	}

	mode := uintptr(0)
	if recursive {
		mode = 1
	}
	r, _, _ = syscall.SyscallN(c.content.vtbl.deleteObjects, uintptr(unsafe.Pointer(c.content)),
		mode, uintptr(unsafe.Pointer(coll)), 0)
	if err := hr(r); err != nil {
		return false, fmt.Errorf("delete %q: %w", id, err)
	}
	// S_FALSE reports partial failure.
	return r == 0, nil
}
